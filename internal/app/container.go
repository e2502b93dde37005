package app

import (
	"context"
	"fmt"
	"time"

	"github.com/doeshing/opsloop/assets"
	"github.com/doeshing/opsloop/internal/application/doctor"
	"github.com/doeshing/opsloop/internal/application/loop"
	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/infrastructure/ai"
	"github.com/doeshing/opsloop/internal/infrastructure/config"
	"github.com/doeshing/opsloop/internal/infrastructure/executor"
	"github.com/doeshing/opsloop/internal/infrastructure/security"
	"github.com/doeshing/opsloop/internal/infrastructure/sysprobe"
	"github.com/doeshing/opsloop/internal/infrastructure/transcript"
	"github.com/doeshing/opsloop/internal/pkg/logger"
	"github.com/doeshing/opsloop/internal/ports"
)

// Options selects how the container is built.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         *logger.SlogLogger
	SystemProbe    ports.SystemProbe
	// Guardrail is nil when security is disabled in config.
	Guardrail     *security.Guardrail
	Backends      ports.BackendFactory
	DoctorService *doctor.Service
}

// SessionOptions are per-run overrides from the command line.
type SessionOptions struct {
	Model          string
	CommandTimeout time.Duration
	// MaxFixAttempts overrides session.max_fix_attempts when non-nil, with
	// the same meaning: 0 is the default cap, negative is uncapped.
	MaxFixAttempts *int
	Console        ports.Console
}

// Session is a ready-to-run orchestrator plus the resources it holds.
type Session struct {
	Orchestrator *loop.Orchestrator
	BackendName  string
	transcript   ports.TranscriptStore
}

// Close releases the session transcript.
func (s *Session) Close() error {
	if s.transcript == nil {
		return nil
	}
	return s.transcript.Close()
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfgLoader := config.NewFileLoader(opts.ConfigPath, assets.DefaultConfigYAML)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.NewStd(opts.Verbose)
	probe := sysprobe.NewHostProbe()

	var guardrail *security.Guardrail
	if cfg.IsSecurityEnabled() {
		guardrail, err = security.NewGuardrail(cfg.Security.RulesFile, assets.DefaultGuardrailYAML)
		if err != nil {
			log.Warn("guardrail rules rejected, using embedded defaults", map[string]interface{}{"error": err.Error()})
			guardrail, err = security.NewGuardrail("", assets.DefaultGuardrailYAML)
			if err != nil {
				return nil, err
			}
		}
		log.Debug("guardrail loaded", map[string]interface{}{"source": guardrail.Source(), "rules": guardrail.RuleCount()})
	}

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		SystemProbe:    probe,
		Shell:          executor.NewLocalExecutor(cfg.GetExecutionShell(), cfg.GetCommandTimeout()).Shell(),
	}
	if guardrail != nil {
		doctorService.SecurityService = guardrail
	}

	return &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
		SystemProbe:    probe,
		Guardrail:      guardrail,
		Backends:       ai.NewFactory(cfg.GetBackendTimeout(), log),
		DoctorService:  doctorService,
	}, nil
}

// NewSession builds the orchestrator for one interactive run.
func (c *Container) NewSession(opts SessionOptions) (*Session, error) {
	if opts.Console == nil {
		return nil, fmt.Errorf("new session: console is required")
	}
	cfg := c.Config
	if opts.MaxFixAttempts != nil {
		cfg.Session.MaxFixAttempts = *opts.MaxFixAttempts
	}

	model, err := cfg.PickModel(opts.Model)
	if err != nil {
		return nil, err
	}
	backend, err := c.Backends.ForModel(model, cfg)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	timeout := cfg.GetCommandTimeout()
	if opts.CommandTimeout > 0 {
		timeout = opts.CommandTimeout
	}

	var fallbacks []ports.Backend
	for _, fb := range cfg.GetFallbackModels(model.Name) {
		b, err := c.Backends.ForModel(fb, cfg)
		if err != nil {
			c.Logger.Warn("fallback model skipped", map[string]interface{}{"model": fb.Name, "error": err.Error()})
			continue
		}
		fallbacks = append(fallbacks, b)
	}

	orch := &loop.Orchestrator{
		Backend:   backend,
		Executor:  executor.NewLocalExecutor(cfg.GetExecutionShell(), timeout),
		Console:   opts.Console,
		Logger:    c.Logger,
		Fallbacks: fallbacks,
		Machine: loop.Machine{
			MaxFixAttempts: cfg.GetMaxFixAttempts(),
			MaxOutputBytes: cfg.GetMaxOutputBytes(),
		},
	}
	if c.Guardrail != nil {
		orch.Security = c.Guardrail
	}

	session := &Session{Orchestrator: orch, BackendName: backend.Name()}
	store, err := transcript.NewSQLiteStore()
	if err != nil {
		c.Logger.Warn("session transcript unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		orch.Transcript = store
		session.transcript = store
	}
	return session, nil
}

package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	configapp "github.com/doeshing/opsloop/internal/application/config"
	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/ports"
)

// RuleSource describes where guardrail rules came from.
type RuleSource interface {
	Source() string
	RuleCount() int
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider  ports.ConfigProvider
	SecurityService ports.SecurityService
	SystemProbe     ports.SystemProbe
	// Shell is the resolved shell used for confirmed commands.
	Shell string

	lookPath func(string) (string, error)
	getenv   func(string) string
}

// Run executes checks and returns a report. The error is non-nil only when
// the config cannot be loaded.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("format version %s, %d models, %d use cases",
		cfg.ConfigFormatVersion, len(cfg.Models), len(cfg.UseCases))))

	if err := configapp.Validate(cfg); err != nil {
		checks = append(checks, fail("Config validation", err.Error()))
	} else {
		checks = append(checks, ok("Config validation", "passed"))
	}

	checks = append(checks, s.guardrailCheck(cfg))
	checks = append(checks, s.probeCheck(ctx))
	checks = append(checks, s.shellCheck())
	checks = append(checks, s.apiCheck(cfg))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) guardrailCheck(cfg domain.Config) domain.HealthCheck {
	if !cfg.IsSecurityEnabled() {
		return warn("Guardrail", "disabled in config")
	}
	if s.SecurityService == nil {
		return warn("Guardrail", "security service not initialized")
	}
	if _, err := s.SecurityService.Evaluate("ls"); err != nil {
		return fail("Guardrail", err.Error())
	}
	if src, isSource := s.SecurityService.(RuleSource); isSource {
		return ok("Guardrail", fmt.Sprintf("%d rules from %s", src.RuleCount(), src.Source()))
	}
	return ok("Guardrail", "rules loaded")
}

func (s *Service) probeCheck(ctx context.Context) domain.HealthCheck {
	if s.SystemProbe == nil {
		return warn("System probe", "not initialized")
	}
	info, err := s.SystemProbe.Probe(ctx)
	if err != nil {
		return warn("System probe", err.Error())
	}
	tools := info.AvailableTools()
	if len(tools) == 0 {
		return warn("System probe", fmt.Sprintf("%s/%s, no known tools detected", info.OS.System, info.OS.Machine))
	}
	return ok("System probe", fmt.Sprintf("%s/%s, tools: %d", info.OS.System, info.OS.Machine, len(tools)))
}

func (s *Service) shellCheck() domain.HealthCheck {
	if s.Shell == "" {
		return warn("Shell", "not resolved")
	}
	if _, err := s.look()(s.Shell); err != nil {
		return fail("Shell", fmt.Sprintf("%s: %v", s.Shell, err))
	}
	return ok("Shell", s.Shell)
}

// apiCheck looks at the default model only; it is the one a session uses
// unless --model says otherwise.
func (s *Service) apiCheck(cfg domain.Config) domain.HealthCheck {
	model, err := cfg.PickModel("")
	if err != nil {
		return fail("API key", err.Error())
	}
	switch {
	case model.Kind() == domain.ProviderKindOffline:
		return warn("API key", fmt.Sprintf("model %s is offline; commands come from offline_steps", model.Name))
	case model.AuthEnvVar == "":
		return ok("API key", fmt.Sprintf("model %s needs no key", model.Name))
	case strings.TrimSpace(s.env()(model.AuthEnvVar)) == "":
		return warn("API key", fmt.Sprintf("%s missing for model %s", model.AuthEnvVar, model.Name))
	default:
		return ok("API key", fmt.Sprintf("%s set for model %s", model.AuthEnvVar, model.Name))
	}
}

func (s *Service) look() func(string) (string, error) {
	if s.lookPath != nil {
		return s.lookPath
	}
	return exec.LookPath
}

func (s *Service) env() func(string) string {
	if s.getenv != nil {
		return s.getenv
	}
	return os.Getenv
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}

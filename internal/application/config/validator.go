package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/opsloop/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if len(cfg.Models) == 0 {
		return errors.New("at least one model must be configured")
	}
	if err := validateModels(cfg.Models); err != nil {
		return err
	}
	if err := cfg.ValidateConsistency(); err != nil {
		return err
	}
	if err := validateExecution(cfg.Execution); err != nil {
		return err
	}
	if err := validateBackend(cfg.Backend); err != nil {
		return err
	}
	if err := validateSecurity(cfg.Security); err != nil {
		return err
	}
	return validateUseCases(cfg.UseCases)
}

func validateModels(models []domain.ModelDefinition) error {
	seen := make(map[string]bool, len(models))
	for i, model := range models {
		if strings.TrimSpace(model.Name) == "" {
			return fmt.Errorf("models[%d]: name must be set", i)
		}
		if seen[model.Name] {
			return fmt.Errorf("models: duplicate name %s", model.Name)
		}
		seen[model.Name] = true
		if model.Endpoint != "" && model.ModelID == "" {
			return fmt.Errorf("model %s: model_id is required with an endpoint", model.Name)
		}
		switch model.APIFormat.SystemMessageMode {
		case "", domain.SystemMessageModeInline, domain.SystemMessageModeSeparate:
		default:
			return fmt.Errorf("model %s: api_format.system_message_mode must be inline|separate, got %s", model.Name, model.APIFormat.SystemMessageMode)
		}
		switch model.APIFormat.ContentWrapper {
		case "", domain.ContentWrapperStandard, domain.ContentWrapperAnthropic:
		default:
			return fmt.Errorf("model %s: api_format.content_wrapper must be standard|anthropic, got %s", model.Name, model.APIFormat.ContentWrapper)
		}
	}
	return nil
}

func validateExecution(exec domain.ExecutionSettings) error {
	if exec.TimeoutSeconds < 0 {
		return fmt.Errorf("execution.timeout must be >= 0")
	}
	if exec.MaxOutputBytes < 0 {
		return fmt.Errorf("execution.max_output_bytes must be >= 0")
	}
	return nil
}

func validateBackend(backend domain.BackendSettings) error {
	if backend.RetryInterval == "" {
		return nil
	}
	d, err := time.ParseDuration(backend.RetryInterval)
	if err != nil {
		return fmt.Errorf("backend.retry_interval invalid: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("backend.retry_interval must be > 0")
	}
	return nil
}

func validateSecurity(sec domain.SecuritySettings) error {
	if sec.Enabled && sec.RulesFile == "" {
		return fmt.Errorf("security.rules_file must be set")
	}
	return nil
}

func validateUseCases(useCases []domain.UseCase) error {
	seen := make(map[string]bool, len(useCases))
	for _, uc := range useCases {
		key := strings.ToLower(uc.Product + "\x00" + uc.Operation)
		if seen[key] {
			return fmt.Errorf("use_cases: duplicate entry %s", uc.Title())
		}
		seen[key] = true
	}
	return nil
}

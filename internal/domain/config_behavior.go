package domain

import (
	"fmt"
	"strings"
	"time"
)

// FindModelByName searches for a model by its name
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	for _, model := range c.Models {
		if model.Name == name {
			return model, true
		}
	}
	return ModelDefinition{}, false
}

// HasModel checks if a model with the given name exists in the configuration
func (c *Config) HasModel(name string) bool {
	_, exists := c.FindModelByName(name)
	return exists
}

// PickModel resolves an explicit override, then the default model, then the
// first configured model.
func (c *Config) PickModel(override string) (ModelDefinition, error) {
	name := override
	if name == "" {
		name = c.Preferences.DefaultModel
	}
	if name == "" && len(c.Models) > 0 {
		return c.Models[0], nil
	}
	if model, ok := c.FindModelByName(name); ok {
		return model, nil
	}
	return ModelDefinition{}, fmt.Errorf("model %s not configured", name)
}

// GetFallbackModels returns the configured fallback models that exist, in
// order, without the primary model and without duplicates.
func (c *Config) GetFallbackModels(primary string) []ModelDefinition {
	var fallbackModels []ModelDefinition
	seen := map[string]bool{primary: true}
	for _, fallbackName := range c.Preferences.FallbackModels {
		if seen[fallbackName] {
			continue
		}
		if model, exists := c.FindModelByName(fallbackName); exists {
			fallbackModels = append(fallbackModels, model)
			seen[fallbackName] = true
		}
	}
	return fallbackModels
}

// FindUseCase looks up a menu entry by product and operation, case-insensitively.
func (c *Config) FindUseCase(product, operation string) (UseCase, bool) {
	for _, uc := range c.UseCases {
		if strings.EqualFold(uc.Product, product) && strings.EqualFold(uc.Operation, operation) {
			return uc, true
		}
	}
	return UseCase{}, false
}

// IsSecurityEnabled checks if security guardrails are enabled
func (c *Config) IsSecurityEnabled() bool {
	return c.Security.Enabled
}

// GetExecutionShell returns the configured shell, "auto" when unset.
func (c *Config) GetExecutionShell() string {
	if c.Execution.Shell == "" {
		return ShellAuto
	}
	return c.Execution.Shell
}

// GetCommandTimeout returns the per-command execution timeout.
func (c *Config) GetCommandTimeout() time.Duration {
	if c.Execution.TimeoutSeconds <= 0 {
		return DefaultCommandTimeout
	}
	return time.Duration(c.Execution.TimeoutSeconds) * time.Second
}

// GetBackendTimeout returns the timeout applied to a single backend call.
func (c *Config) GetBackendTimeout() time.Duration {
	if c.Preferences.TimeoutSeconds <= 0 {
		return DefaultBackendTimeout
	}
	return time.Duration(c.Preferences.TimeoutSeconds) * time.Second
}

// GetMaxOutputBytes bounds how much captured output is echoed back to the backend.
func (c *Config) GetMaxOutputBytes() int {
	if c.Execution.MaxOutputBytes <= 0 {
		return DefaultMaxOutputBytes
	}
	return c.Execution.MaxOutputBytes
}

// GetMaxFixAttempts returns the consecutive failure cap. An unset value
// selects the default; a negative value disables the cap and yields zero.
func (c *Config) GetMaxFixAttempts() int {
	switch {
	case c.Session.MaxFixAttempts < 0:
		return 0
	case c.Session.MaxFixAttempts == 0:
		return DefaultMaxFixAttempts
	default:
		return c.Session.MaxFixAttempts
	}
}

// GetHistoryMessages returns how many prior messages a backend may replay.
func (c *Config) GetHistoryMessages() int {
	if c.Session.HistoryMessages <= 0 {
		return DefaultHistoryMessages
	}
	return c.Session.HistoryMessages
}

// GetRetryInterval parses backend.retry_interval, falling back to the default
// on empty or malformed values.
func (c *Config) GetRetryInterval() time.Duration {
	if c.Backend.RetryInterval == "" {
		return DefaultRetryInterval
	}
	d, err := time.ParseDuration(c.Backend.RetryInterval)
	if err != nil || d <= 0 {
		return DefaultRetryInterval
	}
	return d
}

// GetMaxRetries returns the number of transport retries after the first
// attempt. Unset selects the default; a negative value disables retries.
func (c *Config) GetMaxRetries() int {
	switch {
	case c.Backend.MaxRetries < 0:
		return 0
	case c.Backend.MaxRetries == 0:
		return DefaultMaxRetries
	default:
		return c.Backend.MaxRetries
	}
}

// ValidateConsistency checks the internal consistency of the configuration
func (c *Config) ValidateConsistency() error {
	if c.Preferences.DefaultModel != "" && !c.HasModel(c.Preferences.DefaultModel) {
		return fmt.Errorf("default model %s does not exist in models list", c.Preferences.DefaultModel)
	}

	for _, fallbackName := range c.Preferences.FallbackModels {
		if !c.HasModel(fallbackName) {
			return fmt.Errorf("fallback model %s does not exist in models list", fallbackName)
		}
	}

	for i, uc := range c.UseCases {
		if strings.TrimSpace(uc.Product) == "" || strings.TrimSpace(uc.Operation) == "" {
			return fmt.Errorf("use case #%d needs both product and operation", i+1)
		}
	}

	return nil
}

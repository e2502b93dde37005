package domain

// Config mirrors ~/.opsloop/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Preferences         Preferences       `yaml:"preferences"`
	Models              []ModelDefinition `yaml:"models"`
	Execution           ExecutionSettings `yaml:"execution"`
	Session             SessionSettings   `yaml:"session"`
	Backend             BackendSettings   `yaml:"backend"`
	Security            SecuritySettings  `yaml:"security"`
	UseCases            []UseCase         `yaml:"use_cases"`
}

// Preferences captures user level toggles.
type Preferences struct {
	DefaultModel   string   `yaml:"default_model"`
	FallbackModels []string `yaml:"fallback_models,omitempty"`
	TimeoutSeconds int      `yaml:"timeout"`
}

// ExecutionSettings controls how confirmed commands run.
type ExecutionSettings struct {
	Shell          string `yaml:"shell"`
	TimeoutSeconds int    `yaml:"timeout"`
	MaxOutputBytes int    `yaml:"max_output_bytes"`
}

// SessionSettings bounds the interactive loop.
type SessionSettings struct {
	// MaxFixAttempts caps consecutive failed executions before the loop
	// falls back to asking the user. Zero selects the default, a negative
	// value disables the cap.
	MaxFixAttempts  int `yaml:"max_fix_attempts"`
	HistoryMessages int `yaml:"history_messages"`
}

// BackendSettings configures transport retries against the model backend.
type BackendSettings struct {
	MaxRetries    int    `yaml:"max_retries"`
	RetryInterval string `yaml:"retry_interval"`
}

// SecuritySettings defines guardrail behavior.
type SecuritySettings struct {
	Enabled   bool   `yaml:"enabled"`
	RulesFile string `yaml:"rules_file"`
}

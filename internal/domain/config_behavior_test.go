package domain_test

import (
	"testing"
	"time"

	"github.com/doeshing/opsloop/internal/domain"
)

func TestConfig_PickModel(t *testing.T) {
	cfg := domain.Config{
		Preferences: domain.Preferences{DefaultModel: "gpt4"},
		Models: []domain.ModelDefinition{
			{Name: "claude"},
			{Name: "gpt4"},
		},
	}

	tests := []struct {
		name     string
		config   domain.Config
		override string
		want     string
		wantErr  bool
	}{
		{name: "override wins", config: cfg, override: "claude", want: "claude"},
		{name: "default used without override", config: cfg, want: "gpt4"},
		{name: "first model when nothing is set", config: domain.Config{Models: cfg.Models}, want: "claude"},
		{name: "unknown override", config: cfg, override: "missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := tt.config.PickModel(tt.override)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if model.Name != tt.want {
				t.Errorf("got %s, want %s", model.Name, tt.want)
			}
		})
	}
}

// TestConfig_ValidateConsistency tests configuration consistency validation
func TestConfig_ValidateConsistency(t *testing.T) {
	tests := []struct {
		name      string
		config    domain.Config
		wantError bool
	}{
		{
			name: "valid configuration",
			config: domain.Config{
				Preferences: domain.Preferences{
					DefaultModel:   "claude",
					FallbackModels: []string{"gpt4"},
				},
				Models: []domain.ModelDefinition{
					{Name: "claude"},
					{Name: "gpt4"},
				},
				UseCases: []domain.UseCase{{Product: "curl", Operation: "Install"}},
			},
			wantError: false,
		},
		{
			name: "invalid: default model doesn't exist",
			config: domain.Config{
				Preferences: domain.Preferences{
					DefaultModel: "nonexistent",
				},
				Models: []domain.ModelDefinition{
					{Name: "claude"},
				},
			},
			wantError: true,
		},
		{
			name: "invalid: fallback model doesn't exist",
			config: domain.Config{
				Preferences: domain.Preferences{
					DefaultModel:   "claude",
					FallbackModels: []string{"nonexistent"},
				},
				Models: []domain.ModelDefinition{
					{Name: "claude"},
				},
			},
			wantError: true,
		},
		{
			name: "invalid: use case without operation",
			config: domain.Config{
				UseCases: []domain.UseCase{{Product: "curl"}},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.ValidateConsistency()

			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

// TestConfig_GetFallbackModels tests retrieving fallback models
func TestConfig_GetFallbackModels(t *testing.T) {
	config := domain.Config{
		Preferences: domain.Preferences{
			FallbackModels: []string{"gpt4", "nonexistent", "claude", "ollama", "gpt4"},
		},
		Models: []domain.ModelDefinition{
			{Name: "claude"},
			{Name: "gpt4"},
			{Name: "ollama"},
		},
	}

	fallbacks := config.GetFallbackModels("claude")

	var names []string
	for _, model := range fallbacks {
		names = append(names, model.Name)
	}
	if len(names) != 2 || names[0] != "gpt4" || names[1] != "ollama" {
		t.Errorf("fallbacks = %v, want [gpt4 ollama]", names)
	}

	if got := config.GetFallbackModels("gpt4"); len(got) != 2 || got[0].Name != "claude" {
		t.Errorf("primary gpt4: fallbacks = %v", got)
	}
}

func TestConfig_Durations(t *testing.T) {
	var empty domain.Config
	if got := empty.GetCommandTimeout(); got != domain.DefaultCommandTimeout {
		t.Errorf("command timeout default = %s", got)
	}
	if got := empty.GetRetryInterval(); got != domain.DefaultRetryInterval {
		t.Errorf("retry interval default = %s", got)
	}

	cfg := domain.Config{
		Execution: domain.ExecutionSettings{TimeoutSeconds: 5},
		Backend:   domain.BackendSettings{RetryInterval: "250ms"},
	}
	if got := cfg.GetCommandTimeout(); got != 5*time.Second {
		t.Errorf("command timeout = %s, want 5s", got)
	}
	if got := cfg.GetRetryInterval(); got != 250*time.Millisecond {
		t.Errorf("retry interval = %s, want 250ms", got)
	}

	cfg.Backend.RetryInterval = "soon"
	if got := cfg.GetRetryInterval(); got != domain.DefaultRetryInterval {
		t.Errorf("malformed retry interval should fall back, got %s", got)
	}

	if got := empty.GetMaxRetries(); got != domain.DefaultMaxRetries {
		t.Errorf("max retries default = %d", got)
	}
	cfg.Backend.MaxRetries = -1
	if got := cfg.GetMaxRetries(); got != 0 {
		t.Errorf("negative max retries = %d, want 0", got)
	}
}

func TestConfig_GetMaxFixAttempts(t *testing.T) {
	tests := []struct {
		name string
		set  int
		want int
	}{
		{name: "unset uses default", set: 0, want: domain.DefaultMaxFixAttempts},
		{name: "explicit", set: 5, want: 5},
		{name: "negative disables cap", set: -1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.Config{Session: domain.SessionSettings{MaxFixAttempts: tt.set}}
			if got := cfg.GetMaxFixAttempts(); got != tt.want {
				t.Fatalf("GetMaxFixAttempts() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfig_FindUseCase(t *testing.T) {
	cfg := domain.Config{UseCases: []domain.UseCase{
		{Product: "Splunk-OTel-Collector", Operation: "Install"},
		{Product: "curl", Operation: "Install"},
	}}

	uc, ok := cfg.FindUseCase("CURL", "install")
	if !ok {
		t.Fatal("expected case-insensitive match")
	}
	if uc.Product != "curl" {
		t.Errorf("got %+v", uc)
	}
	if _, ok := cfg.FindUseCase("curl", "Uninstall"); ok {
		t.Error("unexpected match for unknown operation")
	}
}

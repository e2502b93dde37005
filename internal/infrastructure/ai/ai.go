// Package ai provides the model backends behind ports.Backend.
//
// Backends are configuration driven:
//   - Factory: picks a backend for a model definition
//   - HTTP backend: a generic chat-completions client shaped by the model's APIFormat,
//     with bounded in-session history and paced retries
//   - Offline backend: replays the use case's configured command plan, for
//     models without an endpoint
package ai

import (
	"fmt"
	"net/http"
	"time"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/ports"
)

// Factory creates backends for model definitions. It keeps a single HTTP
// client shared across backends.
type Factory struct {
	httpClient *http.Client
	logger     ports.Logger
}

// NewFactory creates a factory whose HTTP client times out after timeout.
func NewFactory(timeout time.Duration, logger ports.Logger) *Factory {
	if timeout <= 0 {
		timeout = domain.DefaultBackendTimeout
	}
	return &Factory{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ForModel returns the offline backend for models without an endpoint and
// the HTTP backend otherwise.
func (f *Factory) ForModel(model domain.ModelDefinition, cfg domain.Config) (ports.Backend, error) {
	switch kind := model.Kind(); kind {
	case domain.ProviderKindOffline:
		return newOfflineBackend(model), nil
	case domain.ProviderKindAnthropic, domain.ProviderKindOpenAI, domain.ProviderKindOllama, domain.ProviderKindUnknown:
		model = applyPreset(model)
		if model.ModelID == "" {
			return nil, fmt.Errorf("model %s: model_id is required", model.Name)
		}
		return newHTTPBackend(model, f.httpClient, httpOptions{
			maxRetries:    cfg.GetMaxRetries(),
			retryInterval: cfg.GetRetryInterval(),
			maxHistory:    cfg.GetHistoryMessages(),
			logger:        f.logger,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", kind)
	}
}

var _ ports.BackendFactory = (*Factory)(nil)

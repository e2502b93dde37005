package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/ports"
)

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

type httpOptions struct {
	maxRetries    int
	retryInterval time.Duration
	maxHistory    int
	logger        ports.Logger
}

// httpBackend is a configuration-driven chat API client. It keeps the
// exchanges of the current session, bounded to maxHistory messages, so the
// model sees the conversation that led to each request.
type httpBackend struct {
	model      domain.ModelDefinition
	httpClient *http.Client
	retryEvery rate.Limit
	opts       httpOptions
	history    []domain.PromptMessage
}

func newHTTPBackend(model domain.ModelDefinition, client *http.Client, opts httpOptions) *httpBackend {
	interval := opts.retryInterval
	if interval <= 0 {
		interval = domain.DefaultRetryInterval
	}
	return &httpBackend{
		model:      model,
		httpClient: client,
		retryEvery: rate.Every(interval),
		opts:       opts,
	}
}

func (p *httpBackend) Name() string {
	return string(p.model.Kind()) + ":" + p.model.Name
}

// Send implements ports.Backend. Retryable failures are retried up to
// maxRetries times. The first attempt goes out immediately; each retry waits
// one retry interval after the previous attempt.
func (p *httpBackend) Send(ctx context.Context, req domain.ModelRequest) (string, error) {
	system, err := renderSystemPrompt(p.model, req)
	if err != nil {
		return "", &domain.BackendError{Op: "render prompt", Err: err}
	}
	user := domain.PromptMessage{Role: "user", Content: req.Payload}
	messages := append(append([]domain.PromptMessage{}, p.history...), user)

	body, err := p.buildRequestBody(system, messages)
	if err != nil {
		return "", &domain.BackendError{Op: "build request", Err: err}
	}

	limiter := rate.NewLimiter(p.retryEvery, 1)
	var lastErr error
	for attempt := 0; attempt <= p.opts.maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return "", &domain.BackendError{Op: "send", Err: err}
		}
		text, err := p.post(ctx, body)
		if err == nil {
			p.remember(user, domain.PromptMessage{Role: "assistant", Content: text})
			return text, nil
		}
		lastErr = err
		if !domain.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		if p.opts.logger != nil {
			p.opts.logger.Warn("backend attempt failed", map[string]interface{}{
				"attempt": attempt + 1,
				"error":   err.Error(),
			})
		}
	}
	return "", lastErr
}

func (p *httpBackend) post(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.model.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &domain.BackendError{Op: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := p.setAuthHeaders(httpReq); err != nil {
		return "", &domain.BackendError{Op: "auth", Err: err}
	}
	p.setExtraHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.BackendError{Op: "send", Retryable: ctx.Err() == nil, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = resp.Status
		}
		return "", &domain.BackendError{
			Op:        "send",
			Status:    resp.StatusCode,
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Err:       errors.New(msg),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.BackendError{Op: "read response", Retryable: true, Err: err}
	}
	content, err := p.parseResponse(raw)
	if err != nil {
		return "", &domain.BackendError{Op: "parse response", Err: err}
	}
	if content == "" {
		return "", &domain.BackendError{Op: "parse response", Retryable: true, Err: domain.ErrEmptyResponse}
	}
	return content, nil
}

func (p *httpBackend) remember(msgs ...domain.PromptMessage) {
	p.history = append(p.history, msgs...)
	if limit := p.opts.maxHistory; limit > 0 && len(p.history) > limit {
		p.history = append([]domain.PromptMessage(nil), p.history[len(p.history)-limit:]...)
	}
}

// buildRequestBody constructs the JSON request body based on the model's APIFormat configuration.
func (p *httpBackend) buildRequestBody(system string, messages []domain.PromptMessage) ([]byte, error) {
	format := p.model.APIFormat

	request := map[string]interface{}{
		"model": p.model.ModelID,
	}
	if p.model.MaxTokens > 0 {
		request["max_tokens"] = p.model.MaxTokens
	}

	if format.IsSystemMessageSeparate() {
		if system != "" {
			request["system"] = system
		}
		request["messages"] = formatMessages(messages, format)
	} else {
		all := messages
		if system != "" {
			all = append([]domain.PromptMessage{{Role: "system", Content: system}}, messages...)
		}
		request["messages"] = formatMessages(all, format)
	}

	return json.Marshal(request)
}

func formatMessages(messages []domain.PromptMessage, format domain.APIFormat) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		result = append(result, formatMessage(msg, format))
	}
	return result
}

// formatMessage formats a single message based on the content wrapper configuration.
func formatMessage(msg domain.PromptMessage, format domain.APIFormat) map[string]interface{} {
	message := map[string]interface{}{
		"role": strings.ToLower(msg.Role),
	}
	if format.IsContentWrapped() {
		message["content"] = []map[string]string{
			{"type": "text", "text": msg.Content},
		}
	} else {
		message["content"] = msg.Content
	}
	return message
}

// setAuthHeaders configures authentication headers based on the model's
// APIFormat. Models without auth_env_var (local servers) send none.
func (p *httpBackend) setAuthHeaders(req *http.Request) error {
	if p.model.AuthEnvVar == "" {
		return nil
	}
	apiKey := os.Getenv(p.model.AuthEnvVar)
	if apiKey == "" {
		return fmt.Errorf("missing API key: set %s environment variable", p.model.AuthEnvVar)
	}

	format := p.model.APIFormat
	req.Header.Set(format.GetAuthHeaderName(), format.GetAuthHeaderPrefix()+apiKey)

	if p.model.OrgEnvVar != "" {
		if orgID := os.Getenv(p.model.OrgEnvVar); orgID != "" {
			req.Header.Set("OpenAI-Organization", orgID)
		}
	}
	return nil
}

func (p *httpBackend) setExtraHeaders(req *http.Request) {
	for key, value := range p.model.APIFormat.ExtraHeaders {
		req.Header.Set(key, value)
	}
}

// parseResponse extracts the generated text using the configured JSON path.
func (p *httpBackend) parseResponse(body []byte) (string, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("unmarshal JSON: %w", err)
	}

	path := p.model.APIFormat.GetResponseJSONPath()
	content, err := extractJSONPath(response, path)
	if err != nil {
		return "", fmt.Errorf("extract from path '%s': %w", path, err)
	}
	return strings.TrimSpace(content), nil
}

var _ ports.Backend = (*httpBackend)(nil)

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/opsloop/internal/domain"
)

func openAIReply(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
}

func newTestBackend(t *testing.T, model domain.ModelDefinition, retries int) *httpBackend {
	t.Helper()
	return newHTTPBackend(applyPreset(model), &http.Client{Timeout: 5 * time.Second}, httpOptions{
		maxRetries:    retries,
		retryInterval: time.Millisecond,
		maxHistory:    4,
	})
}

var installCurl = domain.ModelRequest{
	Mode:    domain.ModeExecute,
	Payload: "Product: curl\nOperation: Install",
	UseCase: domain.UseCase{Product: "curl", Operation: "Install"},
}

func TestHTTPBackendOpenAIFormat(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(openAIReply("```bash\napt-get install -y curl\n```"))
	}))
	defer srv.Close()

	b := newTestBackend(t, domain.ModelDefinition{
		Name: "gpt", Endpoint: srv.URL, ModelID: "gpt-4o-mini", AuthEnvVar: "TEST_OPENAI_KEY",
	}, 0)

	text, err := b.Send(context.Background(), installCurl)
	require.NoError(t, err)
	assert.Equal(t, "```bash\napt-get install -y curl\n```", text)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 2)
	system := messages[0].(map[string]interface{})
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "Install curl")
	user := messages[1].(map[string]interface{})
	assert.Equal(t, installCurl.Payload, user["content"])
}

func TestHTTPBackendAnthropicFormat(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "ak-test")

	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []interface{}{map[string]interface{}{"type": "text", "text": "curl is installed."}},
		})
	}))
	defer srv.Close()

	model := domain.ModelDefinition{
		Name: "claude", Endpoint: srv.URL, ModelID: "claude-sonnet-4-5", AuthEnvVar: "TEST_ANTHROPIC_KEY",
		APIFormat: domain.APIFormat{
			AuthHeaderName:    "x-api-key",
			SystemMessageMode: domain.SystemMessageModeSeparate,
			ContentWrapper:    domain.ContentWrapperAnthropic,
			ResponseJSONPath:  domain.AnthropicResponsePath,
			ExtraHeaders:      map[string]string{"anthropic-version": anthropicVersion},
		},
	}
	b := newTestBackend(t, model, 0)

	text, err := b.Send(context.Background(), installCurl)
	require.NoError(t, err)
	assert.Equal(t, "curl is installed.", text)
	assert.Contains(t, captured["system"], "Install curl")
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 1)
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	assert.Equal(t, "text", content[0].(map[string]interface{})["type"])
}

func TestHTTPBackendRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(openAIReply("ok"))
	}))
	defer srv.Close()

	b := newTestBackend(t, domain.ModelDefinition{Name: "local", Endpoint: srv.URL, ModelID: "m"}, 2)
	text, err := b.Send(context.Background(), installCurl)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPBackendPacesOnlyRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(openAIReply("ok"))
	}))
	defer srv.Close()

	b := newHTTPBackend(applyPreset(domain.ModelDefinition{Name: "local", Endpoint: srv.URL, ModelID: "m"}),
		&http.Client{Timeout: 5 * time.Second}, httpOptions{maxRetries: 1, retryInterval: 300 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := b.Send(context.Background(), installCurl)
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 250*time.Millisecond, "back-to-back sends were paced")

	start = time.Now()
	_, err := b.Send(context.Background(), installCurl)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond, "retry was not paced")
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestHTTPBackendGivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b := newTestBackend(t, domain.ModelDefinition{Name: "local", Endpoint: srv.URL, ModelID: "m"}, 1)
	_, err := b.Send(context.Background(), installCurl)
	require.Error(t, err)

	var be *domain.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusBadGateway, be.Status)
	assert.True(t, be.Retryable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPBackendDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := newTestBackend(t, domain.ModelDefinition{Name: "local", Endpoint: srv.URL, ModelID: "m"}, 3)
	_, err := b.Send(context.Background(), installCurl)
	require.Error(t, err)
	assert.False(t, domain.IsRetryable(err))
	assert.Contains(t, err.Error(), "invalid key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPBackendMissingKey(t *testing.T) {
	t.Setenv("TEST_MISSING_KEY", "")
	b := newTestBackend(t, domain.ModelDefinition{
		Name: "gpt", Endpoint: "http://127.0.0.1:1", ModelID: "m", AuthEnvVar: "TEST_MISSING_KEY",
	}, 2)
	_, err := b.Send(context.Background(), installCurl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_MISSING_KEY")
	assert.False(t, domain.IsRetryable(err))
}

func TestHTTPBackendEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openAIReply("   "))
	}))
	defer srv.Close()

	b := newTestBackend(t, domain.ModelDefinition{Name: "local", Endpoint: srv.URL, ModelID: "m"}, 0)
	_, err := b.Send(context.Background(), installCurl)
	require.ErrorIs(t, err, domain.ErrEmptyResponse)
}

func TestHTTPBackendKeepsBoundedHistory(t *testing.T) {
	var lastCount int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		lastCount = len(body["messages"].([]interface{}))
		_ = json.NewEncoder(w).Encode(openAIReply("noted"))
	}))
	defer srv.Close()

	b := newTestBackend(t, domain.ModelDefinition{Name: "local", Endpoint: srv.URL, ModelID: "m"}, 0)
	for i := 0; i < 5; i++ {
		_, err := b.Send(context.Background(), installCurl)
		require.NoError(t, err)
	}
	// system + 4 remembered + current user message
	assert.Equal(t, 6, lastCount)
	assert.Len(t, b.history, 4)
}

func TestExtractJSONPath(t *testing.T) {
	data := map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"content": "hi"}},
		},
	}
	got, err := extractJSONPath(data, domain.DefaultResponsePath)
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = extractJSONPath(data, "choices[3].message.content")
	assert.Error(t, err)
	_, err = extractJSONPath(data, "missing")
	assert.Error(t, err)
}

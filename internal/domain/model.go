// Package domain holds the plain types shared by the interactive loop, its
// ports and the adapters behind them. Nothing in here performs I/O.
package domain

import "strings"

// ModelDefinition describes one backend entry from the config file.
type ModelDefinition struct {
	Name       string          `yaml:"name"`
	Endpoint   string          `yaml:"endpoint"`
	AuthEnvVar string          `yaml:"auth_env_var"`
	OrgEnvVar  string          `yaml:"org_env_var,omitempty"`
	ModelID    string          `yaml:"model_id"`
	MaxTokens  int             `yaml:"max_tokens"`
	Prompt     []PromptMessage `yaml:"prompt,omitempty"`
	APIFormat  APIFormat       `yaml:"api_format,omitempty"`
}

// APIFormat defines how to construct requests and parse responses for a chat API.
// Zero values select the OpenAI-compatible wire format.
type APIFormat struct {
	AuthHeaderName   string `yaml:"auth_header_name,omitempty"`
	AuthHeaderPrefix string `yaml:"auth_header_prefix,omitempty"`

	// SystemMessageMode is "inline" (system role in messages) or "separate"
	// (top-level "system" field, Anthropic).
	SystemMessageMode string `yaml:"system_message_mode,omitempty"`

	// ContentWrapper is "standard" (string content) or "anthropic"
	// ([{"type":"text","text":...}]).
	ContentWrapper string `yaml:"content_wrapper,omitempty"`

	// ResponseJSONPath locates the generated text, e.g. "content[0].text".
	ResponseJSONPath string `yaml:"response_json_path,omitempty"`

	ExtraHeaders map[string]string `yaml:"extra_headers,omitempty"`
}

// PromptMessage follows the role/content pair required by most chat APIs.
type PromptMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// ProviderKind classifies a model endpoint.
type ProviderKind string

const (
	ProviderKindAnthropic ProviderKind = "anthropic"
	ProviderKindOpenAI    ProviderKind = "openai"
	ProviderKindOllama    ProviderKind = "ollama"
	ProviderKindOffline   ProviderKind = "offline"
	ProviderKindUnknown   ProviderKind = "unknown"
)

const (
	DefaultAuthHeaderName   = "Authorization"
	DefaultAuthHeaderPrefix = "Bearer "

	SystemMessageModeInline   = "inline"
	SystemMessageModeSeparate = "separate"

	ContentWrapperStandard  = "standard"
	ContentWrapperAnthropic = "anthropic"

	DefaultResponsePath   = "choices[0].message.content"
	AnthropicResponsePath = "content[0].text"
)

// Kind infers the provider from the endpoint and name. A model without an
// endpoint is served by the offline backend.
func (m ModelDefinition) Kind() ProviderKind {
	endpoint := strings.ToLower(m.Endpoint)
	name := strings.ToLower(m.Name)
	switch {
	case endpoint == "":
		return ProviderKindOffline
	case strings.Contains(endpoint, "anthropic.com"):
		return ProviderKindAnthropic
	case strings.Contains(endpoint, "openai.com"):
		return ProviderKindOpenAI
	case strings.Contains(name, "ollama"), strings.Contains(endpoint, "11434"):
		return ProviderKindOllama
	default:
		return ProviderKindUnknown
	}
}

// GetAuthHeaderName returns the authentication header name with default fallback.
func (f APIFormat) GetAuthHeaderName() string {
	if f.AuthHeaderName == "" {
		return DefaultAuthHeaderName
	}
	return f.AuthHeaderName
}

// GetAuthHeaderPrefix returns the header prefix. A custom header name with no
// prefix means no prefix (Anthropic's x-api-key).
func (f APIFormat) GetAuthHeaderPrefix() string {
	if f.AuthHeaderName != "" && f.AuthHeaderPrefix == "" {
		return ""
	}
	if f.AuthHeaderPrefix == "" {
		return DefaultAuthHeaderPrefix
	}
	return f.AuthHeaderPrefix
}

// GetResponseJSONPath returns the JSON path for extracting response content.
func (f APIFormat) GetResponseJSONPath() string {
	if f.ResponseJSONPath == "" {
		return DefaultResponsePath
	}
	return f.ResponseJSONPath
}

// IsSystemMessageSeparate reports whether system messages go in a separate field.
func (f APIFormat) IsSystemMessageSeparate() bool {
	return f.SystemMessageMode == SystemMessageModeSeparate
}

// IsContentWrapped reports whether content uses Anthropic's array format.
func (f APIFormat) IsContentWrapped() bool {
	return f.ContentWrapper == ContentWrapperAnthropic
}

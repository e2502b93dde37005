package ai

import (
	"github.com/doeshing/opsloop/internal/domain"
)

const anthropicVersion = "2023-06-01"

// applyPreset fills the wire format of well known providers. Explicit
// api_format values in the config win.
func applyPreset(model domain.ModelDefinition) domain.ModelDefinition {
	format := model.APIFormat
	switch model.Kind() {
	case domain.ProviderKindAnthropic:
		format.AuthHeaderName = valueOrDefault(format.AuthHeaderName, "x-api-key")
		format.SystemMessageMode = valueOrDefault(format.SystemMessageMode, domain.SystemMessageModeSeparate)
		format.ContentWrapper = valueOrDefault(format.ContentWrapper, domain.ContentWrapperAnthropic)
		format.ResponseJSONPath = valueOrDefault(format.ResponseJSONPath, domain.AnthropicResponsePath)
		if _, ok := format.ExtraHeaders["anthropic-version"]; !ok {
			headers := make(map[string]string, len(format.ExtraHeaders)+1)
			for k, v := range format.ExtraHeaders {
				headers[k] = v
			}
			headers["anthropic-version"] = anthropicVersion
			format.ExtraHeaders = headers
		}
	case domain.ProviderKindOpenAI:
		if model.OrgEnvVar == "" {
			model.OrgEnvVar = "OPENAI_ORG_ID"
		}
	}
	if model.MaxTokens <= 0 {
		model.MaxTokens = domain.DefaultMaxTokens
	}
	model.APIFormat = format
	return model
}

func valueOrDefault(value string, def string) string {
	if value == "" {
		return def
	}
	return value
}

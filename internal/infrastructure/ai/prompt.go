package ai

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/doeshing/opsloop/internal/domain"
)

// templateData is what system prompt templates may reference:
//   - {{.Product}}, {{.Operation}}, {{.Details}}: the chosen use case
//   - {{.Mode}}: execute, chat or fix
type templateData struct {
	Product   string
	Operation string
	Details   string
	Mode      string
}

// renderSystemPrompt expands the model's system messages, or the default
// one when the model defines none. Non-system prompt entries are ignored;
// the conversation itself comes from the loop.
func renderSystemPrompt(model domain.ModelDefinition, req domain.ModelRequest) (string, error) {
	data := templateData{
		Product:   req.UseCase.Product,
		Operation: req.UseCase.Operation,
		Details:   req.UseCase.Description,
		Mode:      string(req.Mode),
	}

	var sources []string
	for _, msg := range model.Prompt {
		if strings.EqualFold(msg.Role, "system") {
			sources = append(sources, msg.Content)
		}
	}
	if len(sources) == 0 {
		sources = []string{defaultSystemPrompt}
	}

	rendered := make([]string, 0, len(sources))
	for _, src := range sources {
		text, err := executeTemplate(src, data)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, strings.TrimSpace(text))
	}
	return strings.Join(rendered, "\n\n"), nil
}

func executeTemplate(raw string, data templateData) (string, error) {
	tmpl, err := template.New("prompt").Parse(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const defaultSystemPrompt = `You are an operations assistant helping a user {{.Operation}} {{.Product}} on their machine.
{{if .Details}}Details: {{.Details}}
{{end}}Work one step at a time. When a command is needed, reply with a short explanation and exactly one shell command in a fenced code block.
The user confirms every command before it runs and the result is sent back to you.
{{if eq .Mode "fix"}}The previous command failed. Explain the likely cause from its output and propose a corrected command.
{{end}}When the task is complete, or you need information from the user, reply without any code block.`

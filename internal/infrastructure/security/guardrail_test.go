package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/doeshing/opsloop/internal/domain"
)

func TestGuardrailBlocksCriticalCommands(t *testing.T) {
	guardrail, err := NewGuardrail(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("NewGuardrail error: %v", err)
	}

	for _, cmd := range []string{"rm -rf /", "dd if=/dev/zero of=/dev/sda", ":(){ :|:& };:"} {
		result, err := guardrail.Evaluate(cmd)
		if err != nil {
			t.Fatalf("Evaluate error: %v", err)
		}
		if !result.Blocked() || result.Level != domain.RiskCritical {
			t.Fatalf("%q: expected critical block, got %+v", cmd, result)
		}
	}
}

func TestGuardrailSafeCommandStillConfirms(t *testing.T) {
	guardrail, err := NewGuardrail(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("NewGuardrail error: %v", err)
	}

	result, err := guardrail.Evaluate("ls -la")
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if result.Level != domain.RiskSafe || result.Action != domain.ActionConfirm {
		t.Fatalf("expected safe confirm, got %+v", result)
	}
	if guardrail.Source() != "builtin" {
		t.Fatalf("source = %q", guardrail.Source())
	}
}

func TestGuardrailSubdirectoryIsNotRoot(t *testing.T) {
	guardrail, err := NewGuardrail(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("NewGuardrail error: %v", err)
	}
	result, _ := guardrail.Evaluate("rm -rf /opt/splunk-otel-collector")
	if result.Blocked() {
		t.Fatalf("subdirectory delete should not be blocked: %+v", result)
	}
	result, _ = guardrail.Evaluate("rm -rf /etc")
	if result.Level != domain.RiskHigh || result.Action != domain.ActionExplicitConfirm {
		t.Fatalf("expected explicit confirm for system dir, got %+v", result)
	}
}

func TestGuardrailLoadsFileAndWhitelist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardrail.yaml")
	rules := `rules:
  danger_patterns:
    - pattern: 'systemctl\s+stop'
      level: high
      message: Stopping a service
      action: explicit_confirm
  whitelist:
    - systemctl status
`
	if err := os.WriteFile(path, []byte(rules), 0o600); err != nil {
		t.Fatal(err)
	}
	guardrail, err := NewGuardrail(path, nil)
	if err != nil {
		t.Fatalf("NewGuardrail error: %v", err)
	}
	if guardrail.Source() != path || guardrail.RuleCount() != 1 {
		t.Fatalf("source %q rules %d", guardrail.Source(), guardrail.RuleCount())
	}

	result, _ := guardrail.Evaluate("systemctl stop splunk-otel-collector")
	if result.Action != domain.ActionExplicitConfirm || len(result.Reasons) != 1 {
		t.Fatalf("unexpected assessment %+v", result)
	}
	result, _ = guardrail.Evaluate("systemctl status splunk-otel-collector")
	if len(result.MatchedRules) != 0 {
		t.Fatalf("whitelisted command matched rules: %+v", result)
	}
	result, _ = guardrail.Evaluate("systemctl status x; systemctl stop x")
	if result.Action != domain.ActionExplicitConfirm {
		t.Fatalf("chained command bypassed the whitelist check: %+v", result)
	}
}

func TestGuardrailEmbeddedDefaults(t *testing.T) {
	embedded := []byte(`rules:
  danger_patterns:
    - pattern: 'shutdown'
      level: critical
      message: Host shutdown
      action: block
`)
	guardrail, err := NewGuardrail(filepath.Join(t.TempDir(), "missing.yaml"), embedded)
	if err != nil {
		t.Fatalf("NewGuardrail error: %v", err)
	}
	if guardrail.Source() != "embedded" {
		t.Fatalf("source = %q", guardrail.Source())
	}
	result, _ := guardrail.Evaluate("shutdown -h now")
	if !result.Blocked() {
		t.Fatalf("expected block, got %+v", result)
	}
}

func TestGuardrailInvalidPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardrail.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  danger_patterns:\n    - pattern: '('\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewGuardrail(path, nil); err == nil {
		t.Fatal("expected compile error")
	}
}

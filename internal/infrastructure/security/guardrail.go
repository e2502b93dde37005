package security

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/pkg/filesystem"
	"github.com/doeshing/opsloop/internal/ports"
)

// Guardrail implements the SecurityService port.
type Guardrail struct {
	patterns  []compiledPattern
	whitelist []string
	source    string
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule DangerPattern
}

// DangerPattern describes a regex-based guardrail rule.
type DangerPattern struct {
	Pattern string `yaml:"pattern"`
	Level   string `yaml:"level"`
	Message string `yaml:"message"`
	Action  string `yaml:"action"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		DangerPatterns []DangerPattern `yaml:"danger_patterns"`
		// Whitelist holds command prefixes that skip pattern checks.
		Whitelist []string `yaml:"whitelist"`
	} `yaml:"rules"`
}

// NewGuardrail loads rules from path. When the file does not exist the
// embedded defaults are parsed instead, and when those are empty the
// built-in patterns apply.
func NewGuardrail(path string, defaults []byte) (*Guardrail, error) {
	rules, source, err := loadRules(path, defaults)
	if err != nil {
		return nil, err
	}

	var compiled []compiledPattern
	for _, pattern := range rules.Rules.DangerPatterns {
		re, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", pattern.Pattern, err)
		}
		compiled = append(compiled, compiledPattern{
			re:   re,
			rule: pattern,
		})
	}

	return &Guardrail{patterns: compiled, whitelist: rules.Rules.Whitelist, source: source}, nil
}

// Source names where the rules came from: a file path, "embedded" or "builtin".
func (g *Guardrail) Source() string {
	return g.source
}

// RuleCount reports the number of compiled danger patterns.
func (g *Guardrail) RuleCount() int {
	return len(g.patterns)
}

// Evaluate implements ports.SecurityService. Every command still needs the
// user's confirmation; the assessment only escalates or blocks.
func (g *Guardrail) Evaluate(command string) (domain.RiskAssessment, error) {
	if g == nil {
		return domain.RiskAssessment{}, errors.New("guardrail nil")
	}
	assessment := domain.RiskAssessment{
		Level:  domain.RiskSafe,
		Action: domain.ActionConfirm,
	}
	if g.whitelisted(command) {
		return assessment, nil
	}
	highest := domain.RiskSafe
	for _, pattern := range g.patterns {
		if !pattern.re.MatchString(command) {
			continue
		}
		ruleLevel := parseRiskLevel(pattern.rule.Level)
		action := parseAction(pattern.rule.Action)
		if moreSevere(ruleLevel, highest) {
			highest = ruleLevel
			assessment.Level = ruleLevel
		}
		if actionRank(action) > actionRank(assessment.Action) {
			assessment.Action = action
		}
		assessment.Reasons = append(assessment.Reasons, pattern.rule.Message)
		assessment.MatchedRules = append(assessment.MatchedRules, pattern.rule.Pattern)
	}
	return assessment, nil
}

func (g *Guardrail) whitelisted(command string) bool {
	trimmed := strings.TrimSpace(command)
	if strings.ContainsAny(trimmed, ";&|`$>\n") {
		return false
	}
	for _, prefix := range g.whitelist {
		if prefix != "" && (trimmed == prefix || strings.HasPrefix(trimmed, prefix+" ")) {
			return true
		}
	}
	return false
}

func loadRules(path string, defaults []byte) (RulesFile, string, error) {
	var rules RulesFile
	path = filesystem.ExpandPath(path)
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &rules); err != nil {
				return RulesFile{}, "", fmt.Errorf("parse %s: %w", path, err)
			}
			if len(rules.Rules.DangerPatterns) > 0 {
				return rules, path, nil
			}
		case !errors.Is(err, os.ErrNotExist):
			return RulesFile{}, "", fmt.Errorf("read %s: %w", path, err)
		}
	}
	if len(defaults) > 0 {
		if err := yaml.Unmarshal(defaults, &rules); err != nil {
			return RulesFile{}, "", fmt.Errorf("parse embedded rules: %w", err)
		}
		if len(rules.Rules.DangerPatterns) > 0 {
			return rules, "embedded", nil
		}
	}
	rules.Rules.DangerPatterns = defaultPatterns()
	return rules, "builtin", nil
}

func parseRiskLevel(value string) domain.RiskLevel {
	switch strings.ToLower(value) {
	case "low":
		return domain.RiskLow
	case "medium":
		return domain.RiskMedium
	case "high":
		return domain.RiskHigh
	case "critical":
		return domain.RiskCritical
	default:
		return domain.RiskSafe
	}
}

func parseAction(value string) domain.GuardrailAction {
	switch strings.ToLower(value) {
	case "explicit_confirm":
		return domain.ActionExplicitConfirm
	case "block":
		return domain.ActionBlock
	default:
		return domain.ActionConfirm
	}
}

func actionRank(a domain.GuardrailAction) int {
	switch a {
	case domain.ActionBlock:
		return 2
	case domain.ActionExplicitConfirm:
		return 1
	default:
		return 0
	}
}

func moreSevere(next domain.RiskLevel, current domain.RiskLevel) bool {
	order := map[domain.RiskLevel]int{
		domain.RiskSafe:     0,
		domain.RiskLow:      1,
		domain.RiskMedium:   2,
		domain.RiskHigh:     3,
		domain.RiskCritical: 4,
	}
	return order[next] > order[current]
}

func defaultPatterns() []DangerPattern {
	return []DangerPattern{
		{Pattern: `rm\s+-(rf|fr)\s+/(\s|$|\*)`, Level: "critical", Message: "Deleting root directory", Action: "block"},
		{Pattern: `rm\s+-(rf|fr)\s+\*`, Level: "critical", Message: "Recursive delete everything", Action: "explicit_confirm"},
		{Pattern: `rm\s+-(rf|fr)\s+/(etc|usr|bin|boot|var)\b`, Level: "high", Message: "Deleting a system directory", Action: "explicit_confirm"},
		{Pattern: `dd\s+if=`, Level: "critical", Message: "Raw disk writing", Action: "block"},
		{Pattern: `mkfs\.`, Level: "critical", Message: "Formatting filesystem", Action: "block"},
		{Pattern: `> /dev/(sd[a-z]|nvme)`, Level: "critical", Message: "Writing to block device", Action: "block"},
		{Pattern: `chmod\s+777`, Level: "medium", Message: "Overly permissive chmod", Action: "confirm"},
		{Pattern: `curl.*\|\s*sudo`, Level: "high", Message: "Piping remote script to sudo", Action: "confirm"},
		{Pattern: `rm\s+-(rf|fr)\s+\$HOME`, Level: "high", Message: "Deleting home directory", Action: "explicit_confirm"},
		{Pattern: `:\(\)\s*\{\s*:\|:&\s*\};:`, Level: "critical", Message: "Fork bomb", Action: "block"},
	}
}

var _ ports.SecurityService = (*Guardrail)(nil)

// Package rules provides a YAML-based rules engine for merchant categorization.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

//go:embed rules.yaml
var embeddedRules []byte

// MatchType defines how patterns are matched against merchant names.
type MatchType string

const (
	// MatchTypeExact requires the pattern to match the entire merchant exactly
	MatchTypeExact MatchType = "exact"
	// MatchTypeContains requires the pattern to be a substring of the merchant
	MatchTypeContains MatchType = "contains"
)

// Rule represents a single categorization rule.
//
// Rules should be created via YAML loading (NewEngine, LoadEmbedded,
// LoadFromFile), which validates all invariants:
//   - Priority in range [0, 999]
//   - Pattern must not be empty after trimming
//   - MatchType must be "exact" or "contains"
//   - Category must be a valid domain.Category
//
// Fields are exported for YAML unmarshaling; direct construction bypasses
// validation.
type Rule struct {
	Name      string    `yaml:"name"`
	Pattern   string    `yaml:"pattern"`
	MatchType MatchType `yaml:"match_type"`
	Priority  int       `yaml:"priority"`
	Category  string    `yaml:"category"`
}

// RuleSet represents the top-level YAML structure.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Engine performs rule matching on merchant names.
type Engine struct {
	rules []Rule // Sorted by priority (highest first)
}

// NewEngine creates a rules engine from YAML data.
func NewEngine(rulesData []byte) (*Engine, error) {
	var ruleSet RuleSet
	if err := yaml.Unmarshal(rulesData, &ruleSet); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules (check syntax, indentation, and field names): %w", err)
	}

	for i, rule := range ruleSet.Rules {
		if !domain.ValidateCategory(domain.Category(rule.Category)) {
			return nil, fmt.Errorf("rule %d (%s): invalid category %q", i, rule.Name, rule.Category)
		}
		if rule.Priority < 0 || rule.Priority > 999 {
			return nil, fmt.Errorf("rule %d (%s): priority must be in [0,999], got %d", i, rule.Name, rule.Priority)
		}
		if rule.MatchType != MatchTypeExact && rule.MatchType != MatchTypeContains {
			return nil, fmt.Errorf("rule %d (%s): invalid match_type %q (must be 'exact' or 'contains')", i, rule.Name, rule.MatchType)
		}
		if strings.TrimSpace(rule.Pattern) == "" {
			return nil, fmt.Errorf("rule %d (%s): pattern cannot be empty", i, rule.Name)
		}
	}

	// Sort rules by priority (highest first). Use SliceStable to preserve YAML
	// file order for rules with equal priority (guarantees deterministic
	// matching).
	sortedRules := make([]Rule, len(ruleSet.Rules))
	copy(sortedRules, ruleSet.Rules)
	sort.SliceStable(sortedRules, func(i, j int) bool {
		return sortedRules[i].Priority > sortedRules[j].Priority
	})

	return &Engine{rules: sortedRules}, nil
}

// LoadEmbedded loads the embedded rules.yaml file.
func LoadEmbedded() (*Engine, error) {
	engine, err := NewEngine(embeddedRules)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rules (possible binary corruption): %w", err)
	}
	return engine, nil
}

// LoadFromFile loads rules from a filesystem path.
func LoadFromFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	engine, err := NewEngine(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %q: %w", path, err)
	}
	return engine, nil
}

// Match applies rules to a merchant name and returns the first matching
// category. Rules are evaluated in priority order (highest first); equal
// priorities keep their YAML file order. Returns ("", false) if no rules
// match or the merchant is empty.
func (e *Engine) Match(merchant string) (domain.Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(merchant))
	if normalized == "" {
		return "", false
	}

	for _, rule := range e.rules {
		pattern := strings.ToLower(strings.TrimSpace(rule.Pattern))

		matched := false
		switch rule.MatchType {
		case MatchTypeExact:
			matched = normalized == pattern
		case MatchTypeContains:
			matched = strings.Contains(normalized, pattern)
		}

		if matched {
			return domain.Category(rule.Category), true
		}
	}

	return "", false
}

// Len returns the number of loaded rules.
func (e *Engine) Len() int { return len(e.rules) }

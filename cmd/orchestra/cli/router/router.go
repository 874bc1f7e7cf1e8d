// Package router classifies user prompts against bilingual trigger tables
// and suggests which auxiliary CLI agent should handle the task.
//
// Matching is literal substring matching on the lower-cased prompt, nothing
// smarter. When a prompt matches both categories, codex wins: the codex
// table is scanned to completion before the gemini table is consulted.
package router

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed triggers.yaml
var triggersYAML []byte

// Category identifies which agent a trigger routes to.
type Category string

const (
	// CategoryCodex routes design, debugging and deep-reasoning work.
	CategoryCodex Category = "codex"
	// CategoryGemini routes research, multimodal and large-context work.
	CategoryGemini Category = "gemini"
)

// DefaultMinPromptLen is the minimum prompt length considered for routing.
// Shorter prompts produce too many false positives on trivial input. This
// is a tunable, not a contract.
const DefaultMinPromptLen = 10

// Canary triggers that must exist verbatim in the codex table, and the
// merged string that must not. Protects against a data-entry regression
// where two adjacent triggers get concatenated into one.
const (
	canaryImplement = "実装して"
	canaryTest      = "テスト"
	forbiddenMerged = "実装してテスト"
)

// tableDoc mirrors the embedded triggers.yaml document.
type tableDoc struct {
	Version    int `yaml:"version"`
	Categories []struct {
		Name      string `yaml:"name"`
		Languages []struct {
			Lang     string   `yaml:"lang"`
			Triggers []string `yaml:"triggers"`
		} `yaml:"languages"`
	} `yaml:"categories"`
}

// Rule is one (category, language, trigger) record from the trigger tables.
type Rule struct {
	Category Category
	Lang     string
	Trigger  string
}

// Table holds the loaded trigger rules in declaration order.
type Table struct {
	Version int
	Rules   []Rule
}

// LoadTable parses and validates the embedded trigger configuration.
func LoadTable() (*Table, error) {
	var doc tableDoc
	if err := yaml.Unmarshal(triggersYAML, &doc); err != nil {
		return nil, fmt.Errorf("parsing trigger tables: %w", err)
	}

	t := &Table{Version: doc.Version}
	for _, cat := range doc.Categories {
		for _, lang := range cat.Languages {
			for _, trigger := range lang.Triggers {
				t.Rules = append(t.Rules, Rule{
					Category: Category(cat.Name),
					Lang:     lang.Lang,
					Trigger:  trigger,
				})
			}
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate asserts the canary triggers exist and no forbidden merged
// string does.
func (t *Table) Validate() error {
	var hasImplement, hasTest bool
	for _, r := range t.Rules {
		if r.Category != CategoryCodex {
			continue
		}
		switch r.Trigger {
		case canaryImplement:
			hasImplement = true
		case canaryTest:
			hasTest = true
		case forbiddenMerged:
			return fmt.Errorf("invalid merged trigger found: %s", forbiddenMerged)
		}
	}
	if !hasImplement {
		return fmt.Errorf("missing required codex trigger: %s", canaryImplement)
	}
	if !hasTest {
		return fmt.Errorf("missing required codex trigger: %s", canaryTest)
	}
	return nil
}

// triggersFor returns the category's triggers in declaration order.
func (t *Table) triggersFor(c Category) []string {
	var out []string
	for _, r := range t.Rules {
		if r.Category == c {
			out = append(out, r.Trigger)
		}
	}
	return out
}

// Router classifies prompts against a loaded trigger table.
type Router struct {
	table *Table

	// MinPromptLen skips classification for shorter prompts.
	MinPromptLen int
}

// New loads the embedded trigger tables and returns a ready Router.
func New() (*Router, error) {
	table, err := LoadTable()
	if err != nil {
		return nil, err
	}
	return &Router{table: table, MinPromptLen: DefaultMinPromptLen}, nil
}

// Detect classifies a prompt. Returns (category, matched trigger, true) on
// a match, or ("", "", false) when the prompt is too short or matches
// nothing. Codex triggers take priority over gemini triggers.
func (r *Router) Detect(prompt string) (Category, string, bool) {
	if len(prompt) < r.MinPromptLen {
		return "", "", false
	}

	lower := strings.ToLower(prompt)

	for _, category := range []Category{CategoryCodex, CategoryGemini} {
		for _, trigger := range r.table.triggersFor(category) {
			if strings.Contains(lower, trigger) {
				return category, trigger, true
			}
		}
	}

	return "", "", false
}

// Suggestion renders the templated next-step instruction for a match.
func Suggestion(category Category, trigger string) string {
	switch category {
	case CategoryCodex:
		return fmt.Sprintf(
			"[Agent Routing] Detected '%s' - this task may benefit from "+
				"Codex CLI's deep reasoning capabilities. "+
				"**Run from project root (never cd first)**: "+
				"`codex exec --skip-git-repo-check --sandbox read-only --full-auto "+
				"\"{task description}\"` for design decisions, debugging, or complex analysis. "+
				"For implementation or test authoring, prefer: "+
				"`codex exec --skip-git-repo-check --sandbox workspace-write --full-auto "+
				"\"{task description}\"`.",
			trigger)
	case CategoryGemini:
		return fmt.Sprintf(
			"[Agent Routing] Detected '%s' - this task may benefit from "+
				"Gemini CLI's research capabilities. "+
				"**Run from project root (never cd first)**: "+
				"`gemini -p \"Research: {topic}\"` "+
				"for documentation, library research, or multimodal content.",
			trigger)
	default:
		return ""
	}
}

// SelfTest runs the regression checks guarding the trigger tables:
// table validation plus three routing canaries. It is the only router
// path allowed to fail loudly.
func (r *Router) SelfTest() error {
	if err := r.table.Validate(); err != nil {
		return err
	}

	checks := []struct {
		prompt  string
		trigger string
	}{
		{"実装してください、この機能を", canaryImplement},
		{"テストを追加してください", canaryTest},
		{"実装してテストを書いて", canaryImplement},
	}
	for _, c := range checks {
		category, trigger, ok := r.Detect(c.prompt)
		if !ok || category != CategoryCodex {
			return fmt.Errorf("self-test failed: %q should route to codex", c.prompt)
		}
		if trigger != c.trigger {
			return fmt.Errorf("self-test failed: %q matched %q, want %q", c.prompt, trigger, c.trigger)
		}
	}
	return nil
}

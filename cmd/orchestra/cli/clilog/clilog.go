// Package clilog records invocations of the external codex and gemini CLIs.
//
// A PostToolUse hook hands it the completed shell command; if the command
// invoked one of the two tools, one redacted Entry is appended to the
// append-only JSONL log that the checkpoint generator later aggregates.
package clilog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/orchestraio/cli/cmd/orchestra/cli/hookio"
	"github.com/orchestraio/cli/redact"
)

// Known tool identifiers.
const (
	ToolCodex  = "codex"
	ToolGemini = "gemini"
)

// Default model identifiers recorded when the command does not name one.
const (
	DefaultCodexModel  = "gpt-5.3-codex"
	DefaultGeminiModel = "gemini-3-pro-preview"
)

// MaxFieldLen is the character budget per stored text field, applied after
// redaction.
const MaxFieldLen = 2000

// Entry is one structured record of a completed external-tool invocation.
// Every field is present in the JSON output even when the underlying
// process produced no output.
type Entry struct {
	Timestamp string  `json:"timestamp"`
	Tool      string  `json:"tool"`
	Model     string  `json:"model"`
	Prompt    *string `json:"prompt"`
	Stdout    string  `json:"stdout"`
	Stderr    string  `json:"stderr"`
	Response  string  `json:"response"`
	Success   bool    `json:"success"`
	HasOutput bool    `json:"has_output"`
	ExitCode  int     `json:"exit_code"`
}

// segmentLeaderPattern finds bare tool names leading a command segment.
// Segments start at the beginning of the command or after ;, &&, || or |.
var segmentLeaderPattern = regexp.MustCompile(`(?i)(?:^|[;&|]\s*)(codex|gemini)\b`)

// DetectTool scans command segments for a codex or gemini invocation.
// When both appear as segment leaders, codex wins; the priority is fixed,
// not positional. Returns ("", false) when neither tool is invoked.
func DetectTool(command string) (string, bool) {
	var sawCodex, sawGemini bool
	for _, m := range segmentLeaderPattern.FindAllStringSubmatch(command, -1) {
		switch strings.ToLower(m[1]) {
		case ToolCodex:
			sawCodex = true
		case ToolGemini:
			sawGemini = true
		}
	}
	if sawCodex {
		return ToolCodex, true
	}
	if sawGemini {
		return ToolGemini, true
	}
	return "", false
}

// compileQuoted builds the patterns that pull a quoted argument following
// a prefix, one per quoting convention: double-quoted, single-quoted, and
// the shell's ANSI-C $'...' form. Tried in that order.
func compileQuoted(prefix string) []*regexp.Regexp {
	suffixes := []string{
		`\s+"((?:[^"\\]|\\.)*)"`,
		`\s+'((?:[^'\\]|\\.)*)'`,
		`\s+\$'((?:[^'\\]|\\.)*)'`,
	}
	patterns := make([]*regexp.Regexp, 0, len(suffixes))
	for _, suffix := range suffixes {
		patterns = append(patterns, regexp.MustCompile(`(?s)`+prefix+suffix))
	}
	return patterns
}

var (
	codexFullAutoPrompt = compileQuoted(`codex\s+exec\s+.*?--full-auto`)
	codexLoosePrompt    = compileQuoted(`codex\s+exec\s+\S+`)
	geminiPromptFlag    = compileQuoted(`gemini\b.*?-p`)
)

// firstQuotedMatch returns the first quoted string matched by any pattern.
func firstQuotedMatch(command string, patterns []*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(command); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// ExtractCodexPrompt pulls the quoted prompt from a codex exec command,
// preferring the form anchored on --full-auto.
func ExtractCodexPrompt(command string) (string, bool) {
	if prompt, ok := firstQuotedMatch(command, codexFullAutoPrompt); ok {
		return prompt, true
	}
	return firstQuotedMatch(command, codexLoosePrompt)
}

// ExtractGeminiPrompt pulls the quoted prompt following gemini's -p flag.
func ExtractGeminiPrompt(command string) (string, bool) {
	return firstQuotedMatch(command, geminiPromptFlag)
}

var modelPattern = regexp.MustCompile(`--model\s+(\S+)`)

// ExtractModel pulls an explicit --model argument from the command.
func ExtractModel(command string) (string, bool) {
	if m := modelPattern.FindStringSubmatch(command); m != nil {
		return m[1], true
	}
	return "", false
}

// Sanitize redacts secrets in text, then truncates it to MaxFieldLen
// characters appending a marker with the original length.
func Sanitize(text string) string {
	redacted := redact.String(text)
	runes := []rune(redacted)
	if len(runes) <= MaxFieldLen {
		return redacted
	}
	return string(runes[:MaxFieldLen]) + fmt.Sprintf("... [truncated, %d total chars]", len(runes))
}

// BuildEntry inspects a completed shell command and, when it invoked one of
// the known tools, assembles the log entry. Returns false when the command
// is not a qualifying invocation.
func BuildEntry(command string, res hookio.CommandResult, now time.Time) (Entry, bool) {
	tool, ok := DetectTool(command)
	if !ok {
		return Entry{}, false
	}

	var prompt *string
	var model string
	switch tool {
	case ToolCodex:
		if p, found := ExtractCodexPrompt(command); found {
			sanitized := Sanitize(p)
			prompt = &sanitized
		}
		model = DefaultCodexModel
		if m, found := ExtractModel(command); found {
			model = m
		}
	case ToolGemini:
		if p, found := ExtractGeminiPrompt(command); found {
			sanitized := Sanitize(p)
			prompt = &sanitized
		}
		model = DefaultGeminiModel
	}

	response := res.Stdout
	if response == "" {
		response = res.Stderr
	}

	entry := Entry{
		Timestamp: now.UTC().Format(time.RFC3339),
		Tool:      tool,
		Model:     model,
		Prompt:    prompt,
		Success:   res.ExitCode == 0,
		HasOutput: res.Stdout != "" || res.Stderr != "",
		ExitCode:  res.ExitCode,
	}
	if res.Stdout != "" {
		entry.Stdout = Sanitize(res.Stdout)
	}
	if res.Stderr != "" {
		entry.Stderr = Sanitize(res.Stderr)
	}
	if response != "" {
		entry.Response = Sanitize(response)
	}

	return entry, true
}

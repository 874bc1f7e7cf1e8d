// Package hookio parses hook event payloads from stdin and emits hook
// responses on stdout.
//
// Payloads arrive in more than one shape depending on the host assistant
// version; everything is normalized before other packages see it.
package hookio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Hook event names as they appear in hookSpecificOutput.
const (
	EventUserPromptSubmit = "UserPromptSubmit"
	EventSessionStart     = "SessionStart"
	EventSessionEnd       = "SessionEnd"
	EventStop             = "Stop"
)

// Payload is the raw hook event payload read from stdin.
type Payload struct {
	// Prompt is the user's prompt text (UserPromptSubmit hooks).
	Prompt string `json:"prompt"`

	// ToolName identifies the tool that ran (PreToolUse/PostToolUse hooks).
	ToolName string `json:"tool_name"`

	// ToolInput carries the tool invocation parameters.
	ToolInput ToolInput `json:"tool_input"`

	// ToolResponse and ToolOutput both carry the completed command result;
	// which key is present depends on the host version. Either may be an
	// object or a bare string.
	ToolResponse json.RawMessage `json:"tool_response"`
	ToolOutput   json.RawMessage `json:"tool_output"`
}

// ToolInput holds the shell command for Bash tool calls.
type ToolInput struct {
	Command string `json:"command"`
}

// CommandResult is the normalized outcome of a completed shell command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Decode reads one JSON payload from r.
func Decode(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding hook payload: %w", err)
	}
	return &p, nil
}

// Result normalizes the completed-command record to (stdout, stderr,
// exit_code), whichever top-level key and shape it arrived under.
// Missing text fields default to empty strings, a missing or malformed
// exit code defaults to 0.
func (p *Payload) Result() CommandResult {
	if res, ok := parseResultValue(p.ToolResponse); ok {
		return res
	}
	if res, ok := parseResultValue(p.ToolOutput); ok {
		return res
	}
	return CommandResult{}
}

// resultObject is the structured shape of a command result.
type resultObject struct {
	Stdout   string          `json:"stdout"`
	Stderr   string          `json:"stderr"`
	Content  string          `json:"content"`
	ExitCode json.RawMessage `json:"exit_code"`
}

// resultKeys are the fields that mark an object as an actual command
// result. An object with none of them (metadata like {"interrupted":false})
// is not authoritative and the next candidate key is consulted.
var resultKeys = []string{"stdout", "stderr", "content", "exit_code"}

func parseResultValue(raw json.RawMessage) (CommandResult, bool) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return CommandResult{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		if !hasAnyResultKey(fields) {
			return CommandResult{}, false
		}
		var obj resultObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return CommandResult{}, false
		}
		stdout := obj.Stdout
		if stdout == "" {
			stdout = obj.Content
		}
		return CommandResult{
			Stdout:   stdout,
			Stderr:   obj.Stderr,
			ExitCode: parseExitCode(obj.ExitCode),
		}, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return CommandResult{Stdout: s}, true
	}

	return CommandResult{}, false
}

func hasAnyResultKey(fields map[string]json.RawMessage) bool {
	for _, key := range resultKeys {
		if _, ok := fields[key]; ok {
			return true
		}
	}
	return false
}

// parseExitCode tolerates absent or non-integer exit codes.
func parseExitCode(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var code int
	if err := json.Unmarshal(raw, &code); err != nil {
		return 0
	}
	return code
}

// ContextOutput is the hookSpecificOutput envelope understood by the host.
type ContextOutput struct {
	HookSpecificOutput SpecificOutput `json:"hookSpecificOutput"`
}

// SpecificOutput names the event and carries the injected context text.
type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// BlockOutput asks the host to block the pending tool call.
type BlockOutput struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Notification is a continue-with-message response.
type Notification struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

// EmitContext writes a hookSpecificOutput response to w.
func EmitContext(w io.Writer, event, additionalContext string) error {
	return emit(w, ContextOutput{
		HookSpecificOutput: SpecificOutput{
			HookEventName:     event,
			AdditionalContext: additionalContext,
		},
	})
}

// EmitBlock writes a block decision to w.
func EmitBlock(w io.Writer, reason string) error {
	return emit(w, BlockOutput{Decision: "block", Reason: reason})
}

// EmitNotification writes a continue notification to w.
func EmitNotification(w io.Writer, message string) error {
	return emit(w, Notification{Result: "continue", Message: message})
}

// emit encodes v as a single JSON line without HTML escaping, so Japanese
// trigger text and markdown survive unmangled.
func emit(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding hook output: %w", err)
	}
	return nil
}

// Package settings provides configuration loading for Orchestra.
// This package is separate from cli so helper packages can import it
// without creating an import cycle.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
)

const (
	// SettingsFile is the path to the Orchestra settings file, relative to
	// the repository root.
	SettingsFile = ".orchestra/settings.json"
	// SettingsLocalFile is the path to the local settings override file
	// (not committed).
	SettingsLocalFile = ".orchestra/settings.local.json"
)

// Settings represents the .orchestra/settings.json configuration.
type Settings struct {
	// Enabled indicates whether Orchestra hooks are active. When false,
	// hooks exit silently. Defaults to true.
	Enabled bool `json:"enabled"`

	// LogLevel sets the diagnostic logging verbosity (debug, info, warn,
	// error). Can be overridden by the ORCHESTRA_LOG_LEVEL environment
	// variable. Defaults to "info".
	LogLevel string `json:"log_level,omitempty"`

	// NotifyAlways makes the CLI log hook emit a notification on every
	// logged call rather than only on failures. Can be overridden by the
	// ORCHESTRA_LOG_NOTIFY environment variable.
	NotifyAlways bool `json:"notify_always,omitempty"`

	// Telemetry controls anonymous usage analytics.
	// nil = not asked yet, true = opted in, false = opted out
	Telemetry *bool `json:"telemetry,omitempty"`
}

// Load loads settings from .orchestra/settings.json under the given layout,
// then applies any overrides from .orchestra/settings.local.json.
// Returns default settings when neither file exists.
func Load(layout paths.Layout) (*Settings, error) {
	settingsPath := filepath.Join(layout.Root, SettingsFile)
	localPath := filepath.Join(layout.Root, SettingsLocalFile)

	settings, err := loadFromFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	localData, err := os.ReadFile(localPath) //nolint:gosec // path derived from layout root + constant
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading local settings file: %w", err)
		}
	} else {
		if err := mergeJSON(settings, localData); err != nil {
			return nil, fmt.Errorf("merging local settings: %w", err)
		}
	}

	return settings, nil
}

// loadFromFile loads settings from a specific file path.
// Returns default settings if the file doesn't exist.
func loadFromFile(filePath string) (*Settings, error) {
	settings := &Settings{
		Enabled: true,
	}

	data, err := os.ReadFile(filePath) //nolint:gosec // path is from caller
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("%w", err)
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}

	return settings, nil
}

// mergeJSON merges JSON data into existing settings.
// Only fields present in the JSON override existing settings.
func mergeJSON(settings *Settings, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	if enabledRaw, ok := raw["enabled"]; ok {
		var e bool
		if err := json.Unmarshal(enabledRaw, &e); err != nil {
			return fmt.Errorf("parsing enabled field: %w", err)
		}
		settings.Enabled = e
	}

	if logLevelRaw, ok := raw["log_level"]; ok {
		var ll string
		if err := json.Unmarshal(logLevelRaw, &ll); err != nil {
			return fmt.Errorf("parsing log_level field: %w", err)
		}
		if ll != "" {
			settings.LogLevel = ll
		}
	}

	if notifyRaw, ok := raw["notify_always"]; ok {
		var n bool
		if err := json.Unmarshal(notifyRaw, &n); err != nil {
			return fmt.Errorf("parsing notify_always field: %w", err)
		}
		settings.NotifyAlways = n
	}

	if telemetryRaw, ok := raw["telemetry"]; ok {
		var t bool
		if err := json.Unmarshal(telemetryRaw, &t); err != nil {
			return fmt.Errorf("parsing telemetry field: %w", err)
		}
		settings.Telemetry = &t
	}

	return nil
}

// IsEnabled reports whether Orchestra hooks are active for the layout.
// Defaults to true when settings cannot be loaded, so a corrupted settings
// file never disables logging silently.
func IsEnabled(layout paths.Layout) bool {
	settings, err := Load(layout)
	if err != nil {
		return true
	}
	return settings.Enabled
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TRANSLATOR_API_KEY", "sk-test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.APIKey != "sk-test" {
		t.Errorf("api key = %q, want from env", cfg.API.APIKey)
	}
	if cfg.API.Model != "gpt-4.1-nano" {
		t.Errorf("model = %q", cfg.API.Model)
	}
	if cfg.Limits.MaxTextLength != 5000 || cfg.Limits.MaxTokensEstimate != 1250 {
		t.Errorf("text limits = %d/%d", cfg.Limits.MaxTextLength, cfg.Limits.MaxTokensEstimate)
	}
	if cfg.Limits.RequestsPerMinute != 30 || cfg.Limits.RequestsPerDay != 500 {
		t.Errorf("request limits = %d/%d", cfg.Limits.RequestsPerMinute, cfg.Limits.RequestsPerDay)
	}
	if cfg.Limits.ClipboardTimeout != 500*time.Millisecond {
		t.Errorf("clipboard timeout = %v", cfg.Limits.ClipboardTimeout)
	}
	if !cfg.Behavior.PreserveClipboard || cfg.Behavior.AutoSplitLongText {
		t.Errorf("behavior defaults = %+v", cfg.Behavior)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLite.Path == "" {
		t.Errorf("storage defaults = %+v, want a persistent backend", cfg.Storage)
	}
	if cfg.Hotkey.Translate != "Ctrl+Shift+T" || len(cfg.Hotkey.Alternatives) != 5 {
		t.Errorf("hotkey defaults = %+v", cfg.Hotkey)
	}
	id, preset := cfg.ActivePrompt()
	if id != "general" || preset.System == "" {
		t.Errorf("ActivePrompt() = %q, %+v", id, preset)
	}
}

func TestLoadConfigFileMergesPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
api:
  model: gpt-4o-mini
  temperature: 0.5
prompt:
  active_preset: Legal
  presets:
    legal:
      name: Legal
      system: Translate legal text.
limits:
  requests_per_minute: 10
behavior:
  auto_split_long_text: true
  chunk_size: 1500
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.Model != "gpt-4o-mini" || cfg.API.Temperature != 0.5 {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Limits.RequestsPerMinute != 10 || cfg.Limits.RequestsPerDay != 500 {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if !cfg.Behavior.AutoSplitLongText || cfg.Behavior.ChunkSize != 1500 {
		t.Errorf("behavior = %+v", cfg.Behavior)
	}
	if _, ok := cfg.Prompt.Presets["general"]; !ok {
		t.Error("built-in presets should survive a file that adds its own")
	}
	id, preset := cfg.ActivePrompt()
	if id != "legal" || preset.System != "Translate legal text." {
		t.Errorf("ActivePrompt() = %q, %+v", id, preset)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"temperature", "api:\n  temperature: 3\n"},
		{"retries", "api:\n  max_retries: 0\n"},
		{"chunk larger than max length", "behavior:\n  chunk_size: 6000\n"},
		{"unknown preset", "prompt:\n  active_preset: nope\n"},
		{"storage type", "storage:\n  type: mongo\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

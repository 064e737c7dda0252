package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their defaults.
func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.ListenAddr != ":8100" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":8100")
	}

	if cfg.Server.ShutdownTimeout != 30 {
		t.Errorf("Server.ShutdownTimeout = %d; want 30", cfg.Server.ShutdownTimeout)
	}

	if cfg.Jobs.MaxConcurrent != 4 {
		t.Errorf("Jobs.MaxConcurrent = %d; want 4", cfg.Jobs.MaxConcurrent)
	}

	if cfg.Jobs.TTLSeconds != 3600 {
		t.Errorf("Jobs.TTLSeconds = %d; want 3600", cfg.Jobs.TTLSeconds)
	}

	if cfg.Limits.MaxTextLength != 10_000 {
		t.Errorf("Limits.MaxTextLength = %d; want 10000", cfg.Limits.MaxTextLength)
	}

	if cfg.Limits.MaxAudioUploadMB != 25 {
		t.Errorf("Limits.MaxAudioUploadMB = %d; want 25", cfg.Limits.MaxAudioUploadMB)
	}

	if cfg.Engine.Backend != BackendMock {
		t.Errorf("Engine.Backend = %q; want %q", cfg.Engine.Backend, BackendMock)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}
}

func TestMaxAudioUploadBytes(t *testing.T) {
	l := LimitsConfig{MaxAudioUploadMB: 25}

	if got := l.MaxAudioUploadBytes(); got != 25*1024*1024 {
		t.Errorf("MaxAudioUploadBytes() = %d; want %d", got, 25*1024*1024)
	}
}

// --- Load precedence ---

func TestLoadUsesDefaultsWhenNothingSet(t *testing.T) {
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(defaults), Defaults: defaults})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Jobs.MaxConcurrent != defaults.Jobs.MaxConcurrent {
		t.Errorf("MaxConcurrent = %d; want %d", cfg.Jobs.MaxConcurrent, defaults.Jobs.MaxConcurrent)
	}
}

func TestLoadFlagOverridesDefault(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	err := binder.fs.Set("jobs-max-concurrent", "8")
	if err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Jobs.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d; want 8", cfg.Jobs.MaxConcurrent)
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("TTSSTUDIO_LIMITS_MAX_TEXT_LENGTH", "64")

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(defaults), Defaults: defaults})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Limits.MaxTextLength != 64 {
		t.Errorf("MaxTextLength = %d; want 64", cfg.Limits.MaxTextLength)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttsstudio.yaml")

	content := "server:\n  listen_addr: \":9999\"\nengine:\n  backend: cli\n"

	err := os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatalf("write config: %v", err)
	}

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{ConfigFile: path, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":9999")
	}

	if cfg.Engine.Backend != BackendCLI {
		t.Errorf("Backend = %q; want %q", cfg.Engine.Backend, BackendCLI)
	}
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	defaults := DefaultConfig()

	_, err := Load(LoadOptions{ConfigFile: "/does/not/exist.yaml", Defaults: defaults})
	if err == nil {
		t.Fatal("want error for missing config file, got nil")
	}
}

// --- NormalizeBackend ---

func TestNormalizeBackend(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"", BackendMock, false},
		{"mock", BackendMock, false},
		{"cli", BackendCLI, false},
		{" CLI ", BackendCLI, false},
		{"onnx", "", true},
	}

	for _, tc := range tests {
		got, err := NormalizeBackend(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizeBackend(%q): want error, got %q", tc.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeBackend(%q): %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeBackend(%q) = %q; want %q", tc.raw, got, tc.want)
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatalf("Load(defaults) error: %v", err)
	}
	if got := cfg.GetPollInterval(); got != DefaultPollInterval {
		t.Errorf("GetPollInterval() = %v, want %v", got, DefaultPollInterval)
	}
	if got := cfg.GetSpeedUnits(); got != DefaultUnits {
		t.Errorf("GetSpeedUnits() = %q, want %q", got, DefaultUnits)
	}
	if diff := cmp.Diff(DefaultSpeedLadder, cfg.GetSpeedLadder()); diff != "" {
		t.Errorf("GetSpeedLadder() mismatch (-want +got):\n%s", diff)
	}
	if cfg.GetLocation() != time.Local {
		t.Errorf("GetLocation() = %v, want Local", cfg.GetLocation())
	}
	if cfg.GetCameraEnabled() {
		t.Error("camera should be disabled by default")
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := &Config{}

	if cfg.GetDevice() != DefaultDevice {
		t.Errorf("GetDevice() = %q", cfg.GetDevice())
	}
	if cfg.GetListen() != DefaultListen {
		t.Errorf("GetListen() = %q", cfg.GetListen())
	}
	if cfg.GetSpeedThreshold() != DefaultSpeedThreshold {
		t.Errorf("GetSpeedThreshold() = %v", cfg.GetSpeedThreshold())
	}
	if cfg.GetHistorySize() != DefaultHistorySize {
		t.Errorf("GetHistorySize() = %d", cfg.GetHistorySize())
	}
	if cfg.GetReadTimeout() != DefaultReadTimeout {
		t.Errorf("GetReadTimeout() = %v", cfg.GetReadTimeout())
	}
	if cfg.GetCameraDir() != DefaultCameraDir {
		t.Errorf("GetCameraDir() = %q", cfg.GetCameraDir())
	}
	if cfg.GetCameraCommand() != nil {
		t.Errorf("GetCameraCommand() = %v, want nil", cfg.GetCameraCommand())
	}
	if cfg.GetCameraDryRun() {
		t.Error("GetCameraDryRun() = true")
	}
}

func TestLoadPartial(t *testing.T) {
	path := writeConfig(t, "radar.json", `{"device": "/dev/ttyUSB0", "speed_units": "kph", "poll_interval": "50ms", "camera_enabled": true}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GetDevice() != "/dev/ttyUSB0" {
		t.Errorf("GetDevice() = %q", cfg.GetDevice())
	}
	if cfg.GetSpeedUnits() != "kph" {
		t.Errorf("GetSpeedUnits() = %q", cfg.GetSpeedUnits())
	}
	if cfg.GetPollInterval() != 50*time.Millisecond {
		t.Errorf("GetPollInterval() = %v", cfg.GetPollInterval())
	}
	if !cfg.GetCameraEnabled() {
		t.Error("GetCameraEnabled() = false")
	}
	if cfg.GetHistorySize() != DefaultHistorySize {
		t.Errorf("GetHistorySize() = %d, want default", cfg.GetHistorySize())
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"non json extension", "radar.yaml", `{}`, ".json extension"},
		{"malformed json", "radar.json", `{"device":`, "failed to parse"},
		{"unknown units", "radar.json", `{"speed_units": "knots"}`, "speed_units"},
		{"negative threshold", "radar.json", `{"speed_threshold": -1}`, "speed_threshold"},
		{"zero history", "radar.json", `{"history_size": 0}`, "history_size"},
		{"bad poll interval", "radar.json", `{"poll_interval": "fast"}`, "poll_interval"},
		{"negative read timeout", "radar.json", `{"read_timeout": "-1s"}`, "read_timeout"},
		{"unsorted ladder", "radar.json", `{"speed_ladder": [10, 5]}`, "ascending"},
		{"unknown timezone", "radar.json", `{"timezone": "Mars/Olympus"}`, "timezone"},
		{"empty camera command", "radar.json", `{"camera_command": []}`, "camera_command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsLargeFile(t *testing.T) {
	body := `{"device": "` + strings.Repeat("x", maxFileSize) + `"}`
	if _, err := Load(writeConfig(t, "big.json", body)); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestGetSpeedLadderIsCopy(t *testing.T) {
	cfg := &Config{SpeedLadder: []float64{2, 4}}
	got := cfg.GetSpeedLadder()
	got[0] = 100
	if cfg.SpeedLadder[0] != 2 {
		t.Error("GetSpeedLadder returned an alias")
	}
}

func TestGetLocation(t *testing.T) {
	tz := "UTC"
	cfg := &Config{Timezone: &tz}
	if cfg.GetLocation().String() != "UTC" {
		t.Errorf("GetLocation() = %v", cfg.GetLocation())
	}
}

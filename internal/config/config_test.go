package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"DATA_DIR", "GAME_VERSIONS", "SNAPSHOT_PROVIDER", "ENABLE_AKASHA", "WORKER_COUNT", "LANGUAGE", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SnapshotProvider != ProviderEnka || cfg.EnableAkasha || cfg.WorkerCount != 4 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if diff := cmp.Diff([]string{"4.1", "4.0"}, cfg.GameVersions); diff != "" {
		t.Fatalf("versions (-want +got):\n%s", diff)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SNAPSHOT_PROVIDER", "MicroGG")
	t.Setenv("GAME_VERSIONS", " 4.2 , ,4.1")
	t.Setenv("ENABLE_AKASHA", "true")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("WORKER_QUEUE_SIZE", "0")
	t.Setenv("LANGUAGE", "en-US")

	cfg, err := Load(zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"4.2", "4.1"}
	if diff := cmp.Diff(want, cfg.GameVersions); diff != "" {
		t.Fatalf("versions (-want +got):\n%s", diff)
	}
	if cfg.SnapshotProvider != ProviderMicroGG || !cfg.EnableAkasha || cfg.WorkerCount != 8 || cfg.WorkerQueueSize != 0 || cfg.Language != "en-US" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SNAPSHOT_PROVIDER", "hoyolab"},
		{"ENABLE_AKASHA", "maybe"},
		{"WORKER_COUNT", "zero"},
		{"WORKER_COUNT", "0"},
		{"WORKER_QUEUE_SIZE", "-1"},
		{"LOG_LEVEL", "loud"},
		{"GAME_VERSIONS", " , "},
		{"LANGUAGE", "!!"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tc.key, tc.value)
			if _, err := Load(zerolog.Nop()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

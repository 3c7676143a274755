package automations

import (
	"os"
	"path/filepath"
	"testing"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Threshold != 50 {
		t.Fatalf("threshold = %d, want 50", cfg.Threshold)
	}
	if cfg.Tagging.Remove != 15 || cfg.Tagging.Rename != 10 {
		t.Fatalf("tagging weights = %+v", cfg.Tagging)
	}
	if cfg.Categorize.Remove != 30 || cfg.Categorize.Move != 25 {
		t.Fatalf("categorize weights = %+v", cfg.Categorize)
	}
	if cfg.Tagging.Remove <= cfg.Tagging.Rename {
		t.Fatalf("removal must outweigh rename: %+v", cfg.Tagging)
	}
}

func TestWeightsFor(t *testing.T) {
	w := Weights{Rename: 1, Move: 2, Remove: 3, AddChild: 4}
	cases := map[types.ChangeType]int{
		types.ChangeRename:       1,
		types.ChangeMove:         2,
		types.ChangeRemove:       3,
		types.ChangeAddChild:     4,
		types.ChangeType("bogus"): 0,
	}
	for ct, want := range cases {
		if got := w.For(ct); got != want {
			t.Fatalf("For(%s) = %d, want %d", ct, got, want)
		}
	}
}

func TestLoadConfigDefaultWhenUnset(t *testing.T) {
	t.Setenv("AUTOMATION_CONFIG_PATH", "")
	cfg, err := LoadConfig(testLogger(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automations.yaml")
	body := []byte("threshold: 70\ntagging:\n  rename: 5\n  move: 6\n  remove: 7\n  add_child: 8\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AUTOMATION_CONFIG_PATH", path)

	cfg, err := LoadConfig(testLogger(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Threshold != 70 {
		t.Fatalf("threshold = %d, want 70", cfg.Threshold)
	}
	if cfg.Tagging.Remove != 7 {
		t.Fatalf("tagging.remove = %d, want 7", cfg.Tagging.Remove)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Categorize != DefaultConfig().Categorize {
		t.Fatalf("categorize = %+v, want defaults", cfg.Categorize)
	}
}

func TestLoadConfigRejectsBadThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automations.yaml")
	if err := os.WriteFile(path, []byte("threshold: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AUTOMATION_CONFIG_PATH", path)

	if _, err := LoadConfig(testLogger(t)); err == nil {
		t.Fatal("expected error for threshold 0")
	}
}

func TestLoadConfigMissingExplicitPath(t *testing.T) {
	t.Setenv("AUTOMATION_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := LoadConfig(testLogger(t)); err == nil {
		t.Fatal("expected error for missing configured file")
	}
}

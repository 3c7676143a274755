package automations

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

// Weights maps structural change types to pressure scores for one
// automation.
type Weights struct {
	Rename   int `yaml:"rename"`
	Move     int `yaml:"move"`
	Remove   int `yaml:"remove"`
	AddChild int `yaml:"add_child"`
}

func (w Weights) For(t types.ChangeType) int {
	switch t {
	case types.ChangeRename:
		return w.Rename
	case types.ChangeMove:
		return w.Move
	case types.ChangeRemove:
		return w.Remove
	case types.ChangeAddChild:
		return w.AddChild
	default:
		return 0
	}
}

// Config carries the tunable pressure policy. Threshold is the score at
// which a (seed, automation) pair is enqueued; per-automation weights
// encode how much each change type matters to that automation.
type Config struct {
	// Threshold in (0,100]; a pressure amount >= Threshold enqueues.
	Threshold  int     `yaml:"threshold"`
	Tagging    Weights `yaml:"tagging"`
	Categorize Weights `yaml:"categorize"`
}

// DefaultConfig encodes the stock policy: removals dominate because a
// removed entity invalidates prior automation output outright; renames
// score lowest. Categorization weights run hotter than tagging ones
// since the categorizer manages the hierarchy directly.
func DefaultConfig() Config {
	return Config{
		Threshold:  50,
		Tagging:    Weights{Rename: 10, Move: 12, Remove: 15, AddChild: 12},
		Categorize: Weights{Rename: 15, Move: 25, Remove: 30, AddChild: 18},
	}
}

// LoadConfig returns the default policy, overlaid with the YAML file at
// AUTOMATION_CONFIG_PATH when that is set. A missing or unreadable file
// is an error only if the path was explicitly configured.
func LoadConfig(logg *logger.Logger) (Config, error) {
	cfg := DefaultConfig()
	path := strings.TrimSpace(os.Getenv("AUTOMATION_CONFIG_PATH"))
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read automation config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse automation config %s: %w", path, err)
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 100 {
		return cfg, fmt.Errorf("automation config %s: threshold %d outside (0,100]", path, cfg.Threshold)
	}
	logg.Info("automation config loaded", "path", path, "threshold", cfg.Threshold)
	return cfg, nil
}

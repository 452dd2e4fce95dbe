package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tile-planner/internal/build"
	"tile-planner/internal/planner"
	"tile-planner/internal/search"
)

// Server holds all configuration for the route server.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address" validate:"required"`
	Port        int    `yaml:"port" validate:"min=1,max=65535"`

	// World
	WorldFile  string `yaml:"world_file"`
	WatchWorld bool   `yaml:"watch_world"`
	AutoLayout Auto   `yaml:"auto_layout"`
	// SnapshotFile receives the hierarchy when /buildHierarchy asks to save it.
	SnapshotFile string `yaml:"snapshot_file"`

	// Hierarchy
	Diagonal  bool   `yaml:"diagonal"`
	CostModel string `yaml:"cost_model" validate:"oneof=children linked"`

	// Queries
	Heuristic            string  `yaml:"heuristic" validate:"oneof=manhattan euclidean tactical"`
	TacticalWeight       float64 `yaml:"tactical_weight" validate:"gte=0"`
	GridFallback         bool    `yaml:"grid_fallback"`
	MaxConcurrentQueries int     `yaml:"max_concurrent_queries" validate:"min=1"`

	// Rate limiting of route endpoints, 0 disables it
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Auto is the block layout used for worlds that define no regions.
type Auto struct {
	Levels    int `yaml:"levels" validate:"gte=0,lte=8"`
	BlockSize int `yaml:"block_size" validate:"gte=2"`
}

// Default returns Server config with sensible defaults.
func Default() Server {
	return Server{
		BindAddress:          "0.0.0.0",
		Port:                 8080,
		WatchWorld:           true,
		AutoLayout:           Auto{Levels: 2, BlockSize: 8},
		SnapshotFile:         "hierarchy.json",
		CostModel:            string(build.CostChildren),
		Heuristic:            string(search.KindManhattan),
		TacticalWeight:       1,
		GridFallback:         true,
		MaxConcurrentQueries: 8,
		RequestsPerSecond:    50,
		Burst:                100,
		LogLevel:             "info",
	}
}

var validate = validator.New()

// Load loads server config from a YAML file over the defaults and validates it.
// If the file doesn't exist, returns defaults.
func Load(path string) (Server, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	kind, err := search.ParseKind(cfg.Heuristic)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	model, err := build.ParseCostModel(cfg.CostModel)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Heuristic, cfg.CostModel = string(kind), string(model)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (s Server) Validate() error {
	return validate.Struct(s)
}

// Addr returns the listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.Port)
}

// BuildOptions returns the hierarchy construction options.
func (s Server) BuildOptions() build.Options {
	return build.Options{
		Diagonal:  s.Diagonal,
		CostModel: build.CostModel(s.CostModel),
	}
}

// PlannerOptions returns the query options.
func (s Server) PlannerOptions() planner.Options {
	return planner.Options{
		Heuristic:      search.Kind(s.Heuristic),
		TacticalWeight: s.TacticalWeight,
		GridFallback:   s.GridFallback,
	}
}

// SlogLevel maps LogLevel to a slog level.
func (s Server) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

package ballistics

import "log/slog"

// Config holds the physical constants and limits of an Engine.
type Config struct {
	Gravity  float64 // ft/s², negative is down
	MaxRange int     // yards; the table holds at most MaxRange+1 samples
}

// DefaultConfig returns standard gravity and a 50000 yard table limit.
func DefaultConfig() Config {
	return Config{
		Gravity:  -32.194,
		MaxRange: 50000,
	}
}

// Engine solves zero angles and trajectories. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	config Config
	logger *slog.Logger
}

// NewEngine creates an engine. Zero values in cfg fall back to DefaultConfig.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.Gravity == 0 {
		cfg.Gravity = def.Gravity
	}
	if cfg.MaxRange <= 0 {
		cfg.MaxRange = def.MaxRange
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{config: cfg, logger: logger}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

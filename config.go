package trellis

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"gopkg.in/yaml.v3"
)

// Config configures an Engine and the window opened by Run. Zero fields fall
// back to DefaultConfig.
type Config struct {
	// Title is the window title.
	Title string `yaml:"title"`
	// Width and Height are the window and logical screen size in pixels.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// TPS is the update rate. Update receives 1/TPS as its delta.
	TPS int `yaml:"tps"`
	// Debug prints per-frame stats to stderr.
	Debug bool `yaml:"debug"`
	// ShowFPS overlays the measured FPS and TPS on the main surface.
	ShowFPS bool `yaml:"show_fps"`
	// LogLevel selects the slog level installed by Run: debug, info, warn,
	// error or off. Empty leaves the current logger untouched.
	LogLevel string `yaml:"log_level"`
	// ClearColour fills the main surface before the command walk. The zero
	// colour leaves Ebitengine's own screen clear in place.
	ClearColour Color `yaml:"clear_colour"`
	// Queue is the initial capacity of stage queues created without one.
	Queue QueueCapacity `yaml:"queue"`
	// Commands is the initial capacity of the frame command queue.
	Commands int `yaml:"commands"`
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		Title:    "trellis",
		Width:    640,
		Height:   480,
		TPS:      60,
		Queue:    QueueCapacity{}.withDefaults(),
		Commands: 32,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Title == "" {
		c.Title = d.Title
	}
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.TPS <= 0 {
		c.TPS = d.TPS
	}
	c.Queue = c.Queue.withDefaults()
	if c.Commands <= 0 {
		c.Commands = d.Commands
	}
	return c
}

// LoadConfig parses a YAML document into a Config. Missing keys keep their
// defaults.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("trellis: load config: %w", err)
	}
	if _, _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("trellis: load config: %w", err)
	}
	return cfg.withDefaults(), nil
}

// LoadConfigFile reads and parses a YAML config file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("trellis: load config: %w", err)
	}
	return LoadConfig(data)
}

// parseLogLevel maps a level name to a slog level. enabled is false for
// "off" and for the empty string.
func parseLogLevel(s string) (level slog.Level, enabled bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return 0, false, nil
	case "debug":
		return slog.LevelDebug, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "warn", "warning":
		return slog.LevelWarn, true, nil
	case "error":
		return slog.LevelError, true, nil
	default:
		return 0, false, fmt.Errorf("unknown log level %q", s)
	}
}

// NewLogger returns a text logger writing to w at the configured level, or
// nil when logging is off or unset.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, enabled, err := parseLogLevel(c.LogLevel)
	if err != nil || !enabled {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// FrameFunc is called once per tick before the engine advances. It is where
// an application pushes draw requests and queues render commands. Returning
// ebiten.Termination ends Run cleanly.
type FrameFunc func(e *Engine, dt float32) error

// Run opens a window and drives e with Ebitengine's game loop until frame
// returns an error or the window closes. The engine is shut down on return.
func Run(e *Engine, cfg Config, frame FrameFunc) error {
	cfg = cfg.withDefaults()
	if cfg.LogLevel != "" {
		if l := cfg.NewLogger(os.Stderr); l != nil {
			SetLogger(l)
		}
	}
	e.SetDebugMode(cfg.Debug)

	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetTPS(cfg.TPS)

	g := &game{engine: e, cfg: cfg, frame: frame, dt: 1 / float32(cfg.TPS)}
	err := ebiten.RunGame(g)
	e.Shutdown(false)
	if err == ebiten.Termination {
		return nil
	}
	return err
}

// game adapts an Engine to ebiten.Game.
type game struct {
	engine *Engine
	cfg    Config
	frame  FrameFunc
	dt     float32
}

func (g *game) Update() error {
	if g.frame != nil {
		if err := g.frame(g.engine, g.dt); err != nil {
			return err
		}
	}
	g.engine.Update(g.dt)
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.engine.Draw(screen)
	if g.cfg.ShowFPS {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
}

func (g *game) Layout(int, int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

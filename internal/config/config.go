package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultTasksFileName  = "tasks.xml"
	DefaultAnimationMS    = 300
	DefaultRowHeight      = 1

	// ConfigEnv overrides the config file location.
	ConfigEnv = "TODOPANEL_CONFIG"
	appDir    = "todopanel"
)

type Keymap struct {
	Quit         string `toml:"quit"`
	Add          string `toml:"add"`
	Up           string `toml:"up"`
	Down         string `toml:"down"`
	Toggle       string `toml:"toggle"`
	Delete       string `toml:"delete"`
	Confirm      string `toml:"confirm"`
	Cancel       string `toml:"cancel"`
	Rename       string `toml:"rename"`
	PriorityUp   string `toml:"priority_up"`
	PriorityDown string `toml:"priority_down"`
	SortPriority string `toml:"sort_priority"`
	HideFinished string `toml:"hide_finished"`
	Copy         string `toml:"copy"`
	Help         string `toml:"help"`
}

type Config struct {
	TasksFile     string `toml:"tasks_file"`
	LogFile       string `toml:"log_file"`
	LogLevel      string `toml:"log_level"`
	AnimationMS   int    `toml:"animation_ms"`
	RowHeight     int    `toml:"row_height"`
	ConfirmDelete bool   `toml:"confirm_delete"`
	Keys          Keymap `toml:"keys"`
}

func (c Config) AnimationDuration() time.Duration {
	return time.Duration(c.AnimationMS) * time.Millisecond
}

// ResolveConfigPath returns $TODOPANEL_CONFIG, or config.toml under the user
// config directory, or config.toml in the working directory as a last resort.
func ResolveConfigPath() string {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, appDir, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist yet. Unset fields fall back to the defaults.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig(filepath.Dir(path))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.fillDefaults(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) fillDefaults(dir string) {
	def := defaultConfig(dir)
	if c.TasksFile == "" {
		c.TasksFile = def.TasksFile
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.AnimationMS < 0 {
		c.AnimationMS = 0
	}
	if c.RowHeight <= 0 {
		c.RowHeight = def.RowHeight
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Keys.Quit, def.Keys.Quit)
	fill(&c.Keys.Add, def.Keys.Add)
	fill(&c.Keys.Up, def.Keys.Up)
	fill(&c.Keys.Down, def.Keys.Down)
	fill(&c.Keys.Toggle, def.Keys.Toggle)
	fill(&c.Keys.Delete, def.Keys.Delete)
	fill(&c.Keys.Confirm, def.Keys.Confirm)
	fill(&c.Keys.Cancel, def.Keys.Cancel)
	fill(&c.Keys.Rename, def.Keys.Rename)
	fill(&c.Keys.PriorityUp, def.Keys.PriorityUp)
	fill(&c.Keys.PriorityDown, def.Keys.PriorityDown)
	fill(&c.Keys.SortPriority, def.Keys.SortPriority)
	fill(&c.Keys.HideFinished, def.Keys.HideFinished)
	fill(&c.Keys.Copy, def.Keys.Copy)
	fill(&c.Keys.Help, def.Keys.Help)
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration with the task file kept in dir.
func Default(dir string) Config {
	return defaultConfig(dir)
}

func defaultConfig(dir string) Config {
	return Config{
		TasksFile:     filepath.Join(dir, DefaultTasksFileName),
		LogLevel:      "info",
		AnimationMS:   DefaultAnimationMS,
		RowHeight:     DefaultRowHeight,
		ConfirmDelete: true,
		Keys: Keymap{
			Quit:         "q",
			Add:          "a",
			Up:           "k",
			Down:         "j",
			Toggle:       " ",
			Delete:       "d",
			Confirm:      "enter",
			Cancel:       "esc",
			Rename:       "r",
			PriorityUp:   "+",
			PriorityDown: "-",
			SortPriority: "s",
			HideFinished: "h",
			Copy:         "y",
			Help:         "?",
		},
	}
}

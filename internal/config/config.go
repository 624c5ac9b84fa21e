package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

const (
	AppName               = "todo"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "todo.db"
	DefaultLogFileName    = "todo.log"
)

type Keymap struct {
	Quit         string `toml:"quit"`
	Add          string `toml:"add"`
	Up           string `toml:"up"`
	Down         string `toml:"down"`
	Toggle       string `toml:"toggle"`
	Delete       string `toml:"delete"`
	Detail       string `toml:"detail"`
	Confirm      string `toml:"confirm"`
	Cancel       string `toml:"cancel"`
	Edit         string `toml:"edit"`
	Select       string `toml:"select"`
	SelectAll    string `toml:"select_all"`
	ClearSelect  string `toml:"clear_selection"`
	BatchDone    string `toml:"batch_done"`
	BatchDelete  string `toml:"batch_delete"`
	Search       string `toml:"search"`
	CycleSort    string `toml:"cycle_sort"`
	CycleStatus  string `toml:"cycle_status"`
	ClearFilters string `toml:"clear_filters"`
}

type Config struct {
	DBPath        string `toml:"db_path"`
	DefaultSort   string `toml:"default_sort"`
	DefaultStatus string `toml:"default_status"`
	LogLevel      string `toml:"log_level"`
	AuthLatency   string `toml:"auth_latency"`
	Language      string `toml:"language"`
	Keys          Keymap `toml:"keys"`
}

// ResolveConfigPath returns $XDG_CONFIG_HOME/todo/config.toml, falling back
// to ~/.config and finally the working directory.
func ResolveConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName, DefaultConfigFileName)
	}
	return DefaultConfigFileName
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig(path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		cfg.applyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults(path)
	cfg.applyEnv()
	return cfg, nil
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) fillDefaults(path string) {
	def := defaultConfig(path)
	orDefault(&c.DBPath, def.DBPath)
	orDefault(&c.DefaultSort, def.DefaultSort)
	orDefault(&c.DefaultStatus, def.DefaultStatus)
	orDefault(&c.LogLevel, def.LogLevel)
	orDefault(&c.AuthLatency, def.AuthLatency)
	orDefault(&c.Language, def.Language)
	k, dk := &c.Keys, def.Keys
	orDefault(&k.Quit, dk.Quit)
	orDefault(&k.Add, dk.Add)
	orDefault(&k.Up, dk.Up)
	orDefault(&k.Down, dk.Down)
	orDefault(&k.Toggle, dk.Toggle)
	orDefault(&k.Delete, dk.Delete)
	orDefault(&k.Detail, dk.Detail)
	orDefault(&k.Confirm, dk.Confirm)
	orDefault(&k.Cancel, dk.Cancel)
	orDefault(&k.Edit, dk.Edit)
	orDefault(&k.Select, dk.Select)
	orDefault(&k.SelectAll, dk.SelectAll)
	orDefault(&k.ClearSelect, dk.ClearSelect)
	orDefault(&k.BatchDone, dk.BatchDone)
	orDefault(&k.BatchDelete, dk.BatchDelete)
	orDefault(&k.Search, dk.Search)
	orDefault(&k.CycleSort, dk.CycleSort)
	orDefault(&k.CycleStatus, dk.CycleStatus)
	orDefault(&k.ClearFilters, dk.ClearFilters)
}

func orDefault(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// LatencyDuration parses AuthLatency; invalid values mean no latency.
func (c Config) LatencyDuration() time.Duration {
	d, err := time.ParseDuration(c.AuthLatency)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// LanguageTag parses Language, defaulting to English.
func (c Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}

func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// LogPath is where the TUI writes its log, next to the database.
func (c Config) LogPath() string {
	return filepath.Join(filepath.Dir(c.DBPath), DefaultLogFileName)
}

func defaultConfig(path string) Config {
	return Config{
		DBPath:        filepath.Join(filepath.Dir(path), DefaultDBName),
		DefaultSort:   "dueDate",
		DefaultStatus: "all",
		LogLevel:      "info",
		AuthLatency:   "0s",
		Language:      "en",
		Keys: Keymap{
			Quit:         "q",
			Add:          "a",
			Up:           "k",
			Down:         "j",
			Toggle:       " ",
			Delete:       "d",
			Detail:       "enter",
			Confirm:      "enter",
			Cancel:       "esc",
			Edit:         "e",
			Select:       "v",
			SelectAll:    "V",
			ClearSelect:  "u",
			BatchDone:    "c",
			BatchDelete:  "X",
			Search:       "/",
			CycleSort:    "s",
			CycleStatus:  "f",
			ClearFilters: "F",
		},
	}
}

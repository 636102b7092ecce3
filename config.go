package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// config.go - 配置：~/.config/hexview/config.json，命令行参数覆盖

const configDirName = "hexview"

// Config 用户可调整的设置
type Config struct {
	Columns        int64  `json:"columns"`
	WordSize       int64  `json:"word_size"`
	PollIntervalMS int    `json:"poll_interval_ms"`
	Theme          string `json:"theme"`
	Plugin         string `json:"plugin"`
	LogFile        string `json:"log_file"`

	// 以下只来自命令行
	Path       string `json:"-"`
	ConfigPath string `json:"-"`
}

// DefaultConfig 默认 4 列 x 4 字节
func DefaultConfig() Config {
	return Config{
		Columns:        4,
		WordSize:       4,
		PollIntervalMS: int(defaultPollInterval / time.Millisecond),
		Theme:          "dracula",
	}
}

// PollInterval 监视器轮询间隔
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return defaultPollInterval
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDirName, "config.json"), nil
}

// loadConfigFile 把文件中的值合并到 cfg；文件不存在不算错误
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// errUsage 缺少文件参数
var errUsage = errors.New("usage: hexview [flags] <binary file>")

// parseArgs 解析命令行；配置文件先加载，命令行显式给出的值再覆盖
func parseArgs(args []string, stderr io.Writer) (Config, error) {
	cfg := DefaultConfig()

	fs := flag.NewFlagSet("hexview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default $XDG_CONFIG_HOME/hexview/config.json)")
	columns := fs.Int64("columns", 0, "words per row")
	word := fs.Int64("word", 0, "bytes per word")
	poll := fs.Duration("poll", 0, "file change poll interval")
	theme := fs.String("theme", "", "chroma style used for colours")
	plugin := fs.String("plugin", "", "WASM decoder plugin")
	logFile := fs.String("log", "", "write debug log to file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, errUsage.Error())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.ConfigPath = *configPath
	if cfg.ConfigPath == "" {
		if p, err := defaultConfigPath(); err == nil {
			cfg.ConfigPath = p
		}
	}
	if cfg.ConfigPath != "" {
		if err := loadConfigFile(cfg.ConfigPath, &cfg); err != nil {
			log.Printf("config: %v (using defaults)", err)
			keep := cfg.ConfigPath
			cfg = DefaultConfig()
			cfg.ConfigPath = keep
		}
	}

	if *columns > 0 {
		cfg.Columns = *columns
	}
	if *word > 0 {
		cfg.WordSize = *word
	}
	if *poll > 0 {
		cfg.PollIntervalMS = int(*poll / time.Millisecond)
	}
	if *theme != "" {
		cfg.Theme = *theme
	}
	if *plugin != "" {
		cfg.Plugin = *plugin
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if cfg.LogFile == "" && os.Getenv("HEXVIEW_DEBUG") != "" {
		cfg.LogFile = "hexview.log"
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return cfg, errUsage
	}
	cfg.Path = fs.Arg(0)
	return cfg, nil
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/raceview/raceview/document"
	"github.com/raceview/raceview/semantic"
	"github.com/raceview/raceview/tools"
)

const version = "0.1.0"

type config struct {
	Cache struct {
		TTL          string `yaml:"ttl"`
		MaxDocuments int    `yaml:"maxDocuments"`
		MaxTrees     int    `yaml:"maxTrees"`
	} `yaml:"cache"`
	Semantic struct {
		Enabled   bool   `yaml:"enabled"`
		Path      string `yaml:"path"`
		TimeoutMS int    `yaml:"timeoutMs"`
	} `yaml:"semantic"`
}

func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %v: %w", path, err)
	}
	return cfg, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Optional YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	docCfg := document.Config{
		MaxDocuments: cfg.Cache.MaxDocuments,
		MaxTrees:     cfg.Cache.MaxTrees,
	}
	if cfg.Cache.TTL != "" {
		ttl, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("invalid cache.ttl: %w", err)
		}
		docCfg.TTL = ttl
	}

	semCfg := semantic.Config{
		Enabled:    cfg.Semantic.Enabled,
		HelperPath: cfg.Semantic.Path,
		Timeout:    time.Duration(cfg.Semantic.TimeoutMS) * time.Millisecond,
	}
	if semCfg.HelperPath == "" {
		semCfg.HelperPath = semantic.DefaultHelper
	}
	// Environment settings take precedence over the config file.
	if os.Getenv("RACEVIEW_SEMANTIC") != "" {
		semCfg = semantic.FromEnv()
	}

	svc := tools.NewService(document.New(docCfg), document.NewLoader(), semCfg)

	s := server.NewMCPServer("raceview", version)
	tools.Register(s, svc)

	fmt.Fprintln(os.Stderr, "raceview: serving MCP on stdio")
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("serving MCP: %w", err)
	}
	return nil
}

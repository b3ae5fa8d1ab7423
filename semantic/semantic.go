// Package semantic shells out to an optional type-checker helper process for
// exact symbol resolution. The helper is advisory: any failure, from a missing
// binary to a timeout to malformed output, yields nil and the caller falls
// back to syntax-level analysis.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/mod/modfile"
)

const (
	envEnabled = "RACEVIEW_SEMANTIC"
	envPath    = "RACEVIEW_SEMANTIC_PATH"
	envTimeout = "RACEVIEW_SEMANTIC_TIMEOUT_MS"

	// DefaultHelper is the helper binary looked up on PATH when no explicit
	// path is configured.
	DefaultHelper  = "raceview-semantic"
	defaultTimeout = 2 * time.Second
)

// Config controls whether and how the helper runs.
type Config struct {
	Enabled    bool
	HelperPath string
	Timeout    time.Duration
}

// FromEnv reads the helper configuration from the environment.
func FromEnv() Config {
	cfg := Config{
		HelperPath: DefaultHelper,
		Timeout:    defaultTimeout,
	}
	switch os.Getenv(envEnabled) {
	case "1", "true", "on", "yes":
		cfg.Enabled = true
	}
	if path := os.Getenv(envPath); path != "" {
		cfg.HelperPath = path
	}
	if raw := os.Getenv(envTimeout); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			cfg.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg
}

// Point is a zero-based source position in helper wire format.
type Point struct {
	Line uint32 `json:"line"`
	Col  uint32 `json:"col"`
}

// Span is a [start, end) range in helper wire format.
type Span struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// Use is one resolved reference with its write/capture flags.
type Use struct {
	Range    Span `json:"range"`
	Reassign bool `json:"reassign"`
	Captured bool `json:"captured"`
}

// Variable is the helper's resolution result.
type Variable struct {
	Name      string `json:"name"`
	Decl      Span   `json:"decl"`
	Uses      []Use  `json:"uses"`
	IsPointer bool   `json:"is_pointer"`
}

type request struct {
	File    string `json:"file"`
	Module  string `json:"module"`
	Line    uint32 `json:"line"`
	Col     uint32 `json:"col"`
	Content string `json:"content"`
}

// Resolve asks the helper about the symbol at (line, col) in file. It returns
// nil when the helper is disabled or did not produce a usable answer.
func Resolve(ctx context.Context, cfg Config, file string, line, col uint32, content []byte) *Variable {
	if !cfg.Enabled || cfg.HelperPath == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(request{
		File:    file,
		Module:  ModuleFor(file),
		Line:    line,
		Col:     col,
		Content: string(content),
	})
	if err != nil {
		return nil
	}

	cmd := exec.CommandContext(ctx, cfg.HelperPath)
	cmd.Stdin = bytes.NewReader(payload)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil
	}
	var result Variable
	if err := json.Unmarshal(out.Bytes(), &result); err != nil || result.Name == "" {
		return nil
	}
	return &result
}

// ModuleFor walks up from file to the nearest go.mod and returns its module
// path, or "" when no module root is found or the file cannot be parsed.
func ModuleFor(file string) string {
	dir := filepath.Dir(file)
	for {
		goMod := filepath.Join(dir, "go.mod")
		if data, err := os.ReadFile(goMod); err == nil {
			mod, err := modfile.Parse(goMod, data, nil)
			if err != nil || mod.Module == nil {
				return ""
			}
			return mod.Module.Mod.Path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

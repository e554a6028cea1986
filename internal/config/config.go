// Package config reads exportgen.toml.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"exportgen/internal/diag"
	"exportgen/internal/loader"
	"exportgen/internal/metadata"
	"exportgen/internal/scan"
	"exportgen/internal/toolchain"
)

// FileName is the configuration file looked up from the working directory upwards.
const FileName = "exportgen.toml"

// Config is the decoded configuration. Relative paths are resolved against
// the directory holding the file.
type Config struct {
	Path string `toml:"-"`
	Root string `toml:"-"`

	Base      BaseConfig      `toml:"base"`
	Resolve   ResolveConfig   `toml:"resolve"`
	Export    ExportConfig    `toml:"export"`
	Toolchain ToolchainConfig `toml:"toolchain"`
}

// BaseConfig names the running base library.
type BaseConfig struct {
	Name           string `toml:"name"`
	Version        string `toml:"version"`
	PublicKeyToken string `toml:"public_key_token"`
	Culture        string `toml:"culture"`
}

// ResolveConfig configures system-level reference resolution.
type ResolveConfig struct {
	Registry []string `toml:"registry"`
	Cache    string   `toml:"cache"`
}

// ExportConfig lists the accepted export-marker identities.
type ExportConfig struct {
	Attributes []string `toml:"attributes"`
}

// ToolchainConfig maps toolchain lines to assembler binaries.
type ToolchainConfig struct {
	Ilasm map[string]string `toml:"ilasm"`
}

// Default is the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Export: ExportConfig{Attributes: []string{scan.DefaultMarker}},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the file named by explicit, or the nearest FileName above
// startDir, or returns Default.
func Discover(explicit, startDir string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, diag.Wrap(diag.UseBadConfig, err, "looking for %s", FileName)
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load decodes and validates path.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, diag.Wrap(diag.UseBadConfig, err, "%s: failed to parse TOML", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, diag.Errorf(diag.UseBadConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("base") && (!meta.IsDefined("base", "name") || strings.TrimSpace(cfg.Base.Name) == "") {
		return nil, diag.Errorf(diag.UseBadConfig, "%s: [base] requires name", path)
	}
	if meta.IsDefined("export", "attributes") && len(cfg.Export.Attributes) == 0 {
		return nil, diag.Errorf(diag.UseBadConfig, "%s: [export].attributes must not be empty", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.Path = abs
	cfg.Root = filepath.Dir(abs)
	if _, err := cfg.BaseIdentity(); err != nil {
		return nil, err
	}
	for line := range cfg.Toolchain.Ilasm {
		if _, err := toolchain.ParseVersion(line); err != nil {
			return nil, diag.Wrap(diag.UseBadConfig, err, "%s: [toolchain].ilasm line %q", path, line)
		}
	}
	return cfg, nil
}

// BaseIdentity returns the configured base library, or loader.DefaultBase.
func (c *Config) BaseIdentity() (metadata.AssemblyName, error) {
	if c == nil || c.Base.Name == "" {
		return loader.DefaultBase, nil
	}
	id := metadata.AssemblyName{Name: c.Base.Name, Culture: c.Base.Culture}
	if c.Base.Version != "" {
		v, err := metadata.ParseVersion4(c.Base.Version)
		if err != nil {
			return id, diag.Wrap(diag.UseBadConfig, err, "%s: [base].version", c.Path)
		}
		id.Version = v
	}
	if c.Base.PublicKeyToken != "" {
		token, err := hex.DecodeString(c.Base.PublicKeyToken)
		if err != nil {
			return id, diag.Wrap(diag.UseBadConfig, err, "%s: [base].public_key_token", c.Path)
		}
		id.PublicKeyToken = token
	}
	return id, nil
}

// RegistryDirs returns the registry directories as absolute paths.
func (c *Config) RegistryDirs() []string {
	out := make([]string, 0, len(c.Resolve.Registry))
	for _, dir := range c.Resolve.Registry {
		out = append(out, c.resolvePath(dir))
	}
	return out
}

// CacheDir returns the configured cache root, or "" for the default.
func (c *Config) CacheDir() string {
	if c.Resolve.Cache == "" {
		return ""
	}
	return c.resolvePath(c.Resolve.Cache)
}

// AssemblerLines returns the toolchain table with paths resolved. Bare
// command names are left for PATH lookup at run time.
func (c *Config) AssemblerLines() map[string]string {
	out := make(map[string]string, len(c.Toolchain.Ilasm))
	for line, p := range c.Toolchain.Ilasm {
		if strings.ContainsRune(p, os.PathSeparator) || strings.ContainsRune(p, '/') {
			p = c.resolvePath(p)
		}
		out[line] = p
	}
	return out
}

func (c *Config) resolvePath(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Package config loads typelib.toml, the per-project settings of the
// typelib command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"typelib/internal/layout"
	"typelib/internal/trace"
	"typelib/internal/types"
)

// FileName is the name searched for by Find.
const FileName = "typelib.toml"

// Config is the decoded typelib.toml.
type Config struct {
	Layout     LayoutConfig      `toml:"layout"`
	Containers []ContainerConfig `toml:"container"`
	Trace      TraceConfig       `toml:"trace"`
	Inputs     InputsConfig      `toml:"inputs"`
	Cache      CacheConfig       `toml:"cache"`

	// Path is where the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type LayoutConfig struct {
	ByteOrder  string `toml:"byte_order"`
	CountWidth int    `toml:"count_width"`
}

// ContainerConfig declares a container model available to every input.
type ContainerConfig struct {
	Name         string `toml:"name"`
	Size         uint64 `toml:"size"`
	RandomAccess bool   `toml:"random_access"`
	// CountWidth overrides the layout count width for this model.
	CountWidth int `toml:"count_width"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

type InputsConfig struct {
	Files []string `toml:"files"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the settings used without a typelib.toml.
func Default() Config {
	return Config{
		Layout: LayoutConfig{ByteOrder: "little", CountWidth: 8},
		Trace:  TraceConfig{Level: "off", Mode: "stream", Format: "auto", Output: "-"},
	}
}

// Find walks up from startDir looking for typelib.toml.
func Find(startDir string) (path string, ok bool, err error) {
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
			return "", false, nil
		}
		dir = parent
	}
}

// Load reads path over the defaults. Relative input paths are resolved
// against the directory holding the file.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	cfg.Path = path
	base := filepath.Dir(path)
	for i, f := range cfg.Inputs.Files {
		if !filepath.IsAbs(f) {
			cfg.Inputs.Files[i] = filepath.Join(base, f)
		}
	}
	if cfg.Cache.Dir != "" && !filepath.IsAbs(cfg.Cache.Dir) {
		cfg.Cache.Dir = filepath.Join(base, cfg.Cache.Dir)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads explicit when set, otherwise the nearest typelib.toml
// above startDir, otherwise the defaults.
func Discover(explicit, startDir string) (Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the values that have a closed set of choices.
func (c Config) Validate() error {
	if _, err := layout.ParseByteOrder(c.Layout.ByteOrder); err != nil {
		return fmt.Errorf("[layout] %w", err)
	}
	opts, err := c.LayoutOptions()
	if err != nil {
		return fmt.Errorf("[layout] %w", err)
	}
	if _, err := layout.New(opts); err != nil {
		return fmt.Errorf("[layout] %w", err)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace] %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("[trace] %w", err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("[trace] %w", err)
	}
	return nil
}

// LayoutOptions converts [layout] and the per-container count widths into
// engine options.
func (c Config) LayoutOptions() (layout.Options, error) {
	order, err := layout.ParseByteOrder(c.Layout.ByteOrder)
	if err != nil {
		return layout.Options{}, err
	}
	opts := layout.DefaultOptions()
	opts.ByteOrder = order
	if c.Layout.CountWidth != 0 {
		opts.CountWidth = c.Layout.CountWidth
	}
	for _, m := range c.Containers {
		if m.CountWidth == 0 {
			continue
		}
		switch m.CountWidth {
		case 1, 2, 4, 8:
		default:
			return layout.Options{}, fmt.Errorf("container %s: invalid count width %d", m.Name, m.CountWidth)
		}
		if opts.Encodings == nil {
			opts.Encodings = make(map[string]layout.ContainerEncoding, len(c.Containers))
		}
		opts.Encodings[m.Name] = layout.CountPrefixed{Width: m.CountWidth, Order: order}
	}
	return opts, nil
}

// TracerConfig converts [trace] into tracer settings.
func (c Config) TracerConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{Level: level, Mode: mode, Format: format, OutputPath: c.Trace.Output}, nil
}

// RegisterContainers declares the configured container models in r,
// skipping models r already knows with the same settings.
func (c Config) RegisterContainers(r *types.Registry) error {
	for _, m := range c.Containers {
		if existing, ok := r.ContainerModel(m.Name); ok {
			if existing.Size != m.Size || existing.RandomAccess != m.RandomAccess {
				return fmt.Errorf("container %s: configured size/random access %d/%v, registry has %d/%v",
					m.Name, m.Size, m.RandomAccess, existing.Size, existing.RandomAccess)
			}
			continue
		}
		if _, err := r.RegisterContainerModel(m.Name, types.ContainerModelOptions{Size: m.Size, RandomAccess: m.RandomAccess}); err != nil {
			return err
		}
	}
	return nil
}

// Fingerprint summarizes the settings that change how inputs are read,
// for snapshot cache keys.
func (c Config) Fingerprint() []string {
	out := []string{c.Layout.ByteOrder, strconv.Itoa(c.Layout.CountWidth)}
	for _, m := range c.Containers {
		out = append(out, m.Name, strconv.FormatUint(m.Size, 10), strconv.FormatBool(m.RandomAccess))
	}
	return out
}

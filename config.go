package atlas

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/atlas/gpucore"
)

// Default atlas settings.
const (
	// DefaultSize is the default layer dimension (2048x2048).
	DefaultSize = 2048

	// MinSize is the minimum layer dimension (256x256).
	MinSize = 256

	// DefaultDeallocationLimit is the number of frees in one layer after
	// which the layer becomes a migration candidate.
	DefaultDeallocationLimit = 32

	// DefaultLayerCheckRatio is the fraction of the layer ceiling at which
	// fragmentation checks begin.
	DefaultLayerCheckRatio = 0.8

	// DefaultLayerFreeLimit is the number of trailing empty layers that
	// triggers unloading.
	DefaultLayerFreeLimit = 3
)

// Config controls how an AtlasSet is built.
type Config struct {
	// Format is the pixel format of the texture array.
	// Default: RGBA8Unorm
	Format gpucore.TextureFormat

	// UseRefCount selects reference-counted eviction. When false, space is
	// reclaimed from least recently used entries not used this frame.
	UseRefCount bool

	// Size is the layer width and height, clamped to
	// [MinSize, device max 2D dimension].
	// Default: 2048
	Size uint32

	// MaxLayers caps the number of layers. Zero means the device limit.
	MaxLayers uint32

	// InitialLayers is the number of layers created up front.
	// Zero means 1.
	InitialLayers uint32

	// Padding is reserved to the right of and below every allocation.
	Padding int

	// DeallocationLimit is the free count that marks a layer as fragmented.
	// Default: 32
	DeallocationLimit int

	// LayerCheckRatio is the fraction of MaxLayers at which Maintain starts
	// migrating fragmented layers.
	// Default: 0.8
	LayerCheckRatio float64

	// LayerFreeLimit is the trailing empty layer count that makes Maintain
	// unload layers.
	// Default: 3
	LayerFreeLimit int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Format:            gpucore.TextureFormatRGBA8Unorm,
		Size:              DefaultSize,
		DeallocationLimit: DefaultDeallocationLimit,
		LayerCheckRatio:   DefaultLayerCheckRatio,
		LayerFreeLimit:    DefaultLayerFreeLimit,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if gpucore.BytesPerPixel(c.Format) == 0 {
		return &ConfigError{Field: "Format", Reason: "must be RGBA8Unorm, BGRA8Unorm or R8Unorm"}
	}
	if c.Size == 0 {
		return &ConfigError{Field: "Size", Reason: "must be positive"}
	}
	if c.MaxLayers != 0 && c.InitialLayers > c.MaxLayers {
		return &ConfigError{Field: "InitialLayers", Reason: "must be at most MaxLayers"}
	}
	if c.Padding < 0 {
		return &ConfigError{Field: "Padding", Reason: "must be non-negative"}
	}
	if c.DeallocationLimit < 1 {
		return &ConfigError{Field: "DeallocationLimit", Reason: "must be at least 1"}
	}
	if c.LayerCheckRatio <= 0 || c.LayerCheckRatio > 1 {
		return &ConfigError{Field: "LayerCheckRatio", Reason: "must be in (0, 1]"}
	}
	if c.LayerFreeLimit < 1 {
		return &ConfigError{Field: "LayerFreeLimit", Reason: "must be at least 1"}
	}
	return nil
}

// fileConfig is the TOML representation of Config.
type fileConfig struct {
	Format            string  `toml:"format"`
	UseRefCount       bool    `toml:"use_ref_count"`
	Size              uint32  `toml:"size"`
	MaxLayers         uint32  `toml:"max_layers"`
	InitialLayers     uint32  `toml:"initial_layers"`
	Padding           int     `toml:"padding"`
	DeallocationLimit int     `toml:"deallocation_limit"`
	LayerCheckRatio   float64 `toml:"layer_check_ratio"`
	LayerFreeLimit    int     `toml:"layer_free_limit"`
}

var formatNames = map[string]gpucore.TextureFormat{
	"rgba8unorm": gpucore.TextureFormatRGBA8Unorm,
	"bgra8unorm": gpucore.TextureFormatBGRA8Unorm,
	"r8unorm":    gpucore.TextureFormatR8Unorm,
}

// ParseFormat maps a format name such as "rgba8unorm" to a texture format.
func ParseFormat(name string) (gpucore.TextureFormat, error) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return gpucore.TextureFormat(0), fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// FormatName returns the config file name of a texture format.
func FormatName(f gpucore.TextureFormat) string {
	for name, v := range formatNames {
		if v == f {
			return name
		}
	}
	return "unknown"
}

// LoadConfig reads a TOML file. Keys missing from the file keep their
// DefaultConfig value.
func LoadConfig(path string) (Config, error) {
	def := DefaultConfig()
	fc := fileConfig{
		Format:            FormatName(def.Format),
		Size:              def.Size,
		DeallocationLimit: def.DeallocationLimit,
		LayerCheckRatio:   def.LayerCheckRatio,
		LayerFreeLimit:    def.LayerFreeLimit,
	}

	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("atlas: read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("atlas: config %s: unknown key %q", path, undecoded[0].String())
	}

	format, err := ParseFormat(fc.Format)
	if err != nil {
		return Config{}, fmt.Errorf("atlas: config %s: %w", path, err)
	}

	cfg := Config{
		Format:            format,
		UseRefCount:       fc.UseRefCount,
		Size:              fc.Size,
		MaxLayers:         fc.MaxLayers,
		InitialLayers:     fc.InitialLayers,
		Padding:           fc.Padding,
		DeallocationLimit: fc.DeallocationLimit,
		LayerCheckRatio:   fc.LayerCheckRatio,
		LayerFreeLimit:    fc.LayerFreeLimit,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteTOML writes the configuration as TOML.
func (c Config) WriteTOML(w io.Writer) error {
	fc := fileConfig{
		Format:            FormatName(c.Format),
		UseRefCount:       c.UseRefCount,
		Size:              c.Size,
		MaxLayers:         c.MaxLayers,
		InitialLayers:     c.InitialLayers,
		Padding:           c.Padding,
		DeallocationLimit: c.DeallocationLimit,
		LayerCheckRatio:   c.LayerCheckRatio,
		LayerFreeLimit:    c.LayerFreeLimit,
	}
	return toml.NewEncoder(w).Encode(fc)
}

package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/backend"
	"github.com/gogpu/atlas/gpucore"
)

var simOpts = simulateOptions{
	frames:        600,
	sprites:       2000,
	workingSet:    300,
	minSize:       8,
	maxSize:       64,
	maintainEvery: 60,
	seed:          1,
	device:        backend.Soft,
}

func init() {
	cmd := newSimulateCmd()
	f := cmd.Flags()
	f.IntVar(&simOpts.frames, "frames", simOpts.frames, "Number of frames to simulate")
	f.IntVar(&simOpts.sprites, "sprites", simOpts.sprites, "Number of distinct sprites")
	f.IntVar(&simOpts.workingSet, "working-set", simOpts.workingSet, "Sprites drawn per frame")
	f.IntVar(&simOpts.minSize, "min-size", simOpts.minSize, "Smallest sprite edge in pixels")
	f.IntVar(&simOpts.maxSize, "max-size", simOpts.maxSize, "Largest sprite edge in pixels")
	f.IntVar(&simOpts.maintainEvery, "maintain-every", simOpts.maintainEvery, "Run maintenance every N frames (0 disables)")
	f.Uint64Var(&simOpts.seed, "seed", simOpts.seed, "Random seed")
	f.StringVar(&simOpts.device, "device", simOpts.device, `Device backend ("soft", "native" or "auto")`)
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Replay a synthetic sprite workload against an LRU atlas",
		Long: `The simulate command draws a drifting random working set of sprites
every frame, uploading each one to an LRU atlas and starting a new frame
afterwards. Maintenance runs periodically. The command reports hit rate,
evictions and how the layer count evolved.

Example:
  atlasctl simulate --frames 1000 --working-set 500
  atlasctl simulate --device auto --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts := simOpts
			opts.json = jsonOut
			_, err = runSimulate(cmd.OutOrStdout(), cfg, opts)
			return err
		},
	}
}

type simulateOptions struct {
	frames        int
	sprites       int
	workingSet    int
	minSize       int
	maxSize       int
	maintainEvery int
	seed          uint64
	device        string
	json          bool
}

type simResult struct {
	Device     string  `json:"device"`
	Frames     int     `json:"frames"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	Uploads    uint64  `json:"uploads"`
	Evictions  uint64  `json:"evictions"`
	HitRate    float64 `json:"hit_rate"`
	Layers     uint32  `json:"layers"`
	MaxLayers  uint32  `json:"max_layers_seen"`
	Migrations uint64  `json:"migrations"`
	Shrinks    uint64  `json:"shrinks"`
	Failed     int     `json:"failed"`
}

func (o simulateOptions) validate() error {
	switch {
	case o.frames < 1:
		return fmt.Errorf("--frames must be positive")
	case o.sprites < 1:
		return fmt.Errorf("--sprites must be positive")
	case o.workingSet < 1 || o.workingSet > o.sprites:
		return fmt.Errorf("--working-set must be in [1, %d]", o.sprites)
	case o.minSize < 1 || o.maxSize < o.minSize:
		return fmt.Errorf("--min-size and --max-size must satisfy 1 <= min <= max")
	case o.maintainEvery < 0:
		return fmt.Errorf("--maintain-every must not be negative")
	}
	return nil
}

func openDevice(name string) (gpucore.Device, string, error) {
	if name == "auto" {
		return backend.Default(nil)
	}
	dev, err := backend.Open(name, nil)
	return dev, name, err
}

func runSimulate(w io.Writer, cfg atlas.Config, opts simulateOptions) (*simResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	dev, name, err := openDevice(opts.device)
	if err != nil {
		return nil, err
	}
	defer backend.Release(dev)

	cfg.UseRefCount = false
	set, err := atlas.NewWithConfig[int, struct{}](dev, cfg)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	bpp := gpucore.BytesPerPixel(set.Format())

	sizes := make([][2]int, opts.sprites)
	for i := range sizes {
		sizes[i] = [2]int{
			opts.minSize + rng.IntN(opts.maxSize-opts.minSize+1),
			opts.minSize + rng.IntN(opts.maxSize-opts.minSize+1),
		}
	}

	// The working set drifts by replacing a few members each frame.
	working := rng.Perm(opts.sprites)[:opts.workingSet]
	drift := max(1, opts.workingSet/20)

	result := &simResult{Device: name, Frames: opts.frames}
	for frame := 1; frame <= opts.frames; frame++ {
		for range drift {
			working[rng.IntN(len(working))] = rng.IntN(opts.sprites)
		}
		for _, sprite := range working {
			wh := sizes[sprite]
			pixels := bytes.Repeat([]byte{byte(sprite)}, wh[0]*wh[1]*bpp)
			if _, ok := set.Upload(sprite, pixels, wh[0], wh[1], struct{}{}); !ok {
				result.Failed++
			}
		}
		if _, _, layers := set.Size(); layers > result.MaxLayers {
			result.MaxLayers = layers
		}
		set.Trim()

		if opts.maintainEvery > 0 && frame%opts.maintainEvery == 0 {
			report, err := set.Maintain()
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", frame, err)
			}
			if report.Changed() {
				atlas.Logger().Debug("maintenance",
					"frame", frame, "migrated", len(report.Migrated), "freed", report.LayersFreed)
			}
		}
	}

	st := set.Stats()
	_, _, layers := set.Size()
	result.Hits = st.Hits
	result.Misses = st.Misses
	result.Uploads = st.Uploads
	result.Evictions = st.Evictions
	result.HitRate = st.HitRate()
	result.Layers = layers
	result.Migrations = st.Migrations
	result.Shrinks = st.Shrinks

	if opts.json {
		return result, printJSON(w, result)
	}
	return result, printSimResult(w, result)
}

func printSimResult(w io.Writer, r *simResult) error {
	data := [][]string{
		{"Metric", "Value"},
		{"Device", r.Device},
		{"Frames", fmt.Sprintf("%d", r.Frames)},
		{"Hits", fmt.Sprintf("%d", r.Hits)},
		{"Misses", fmt.Sprintf("%d", r.Misses)},
		{"Hit rate", fmt.Sprintf("%.1f%%", r.HitRate*100)},
		{"Uploads", fmt.Sprintf("%d", r.Uploads)},
		{"Evictions", fmt.Sprintf("%d", r.Evictions)},
		{"Failed", fmt.Sprintf("%d", r.Failed)},
		{"Layers (final/peak)", fmt.Sprintf("%d/%d", r.Layers, r.MaxLayers)},
		{"Migrations", fmt.Sprintf("%d", r.Migrations)},
		{"Shrinks", fmt.Sprintf("%d", r.Shrinks)},
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, table)
	return nil
}

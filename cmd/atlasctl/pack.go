package main

import (
	"cmp"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/backend/soft"
)

var (
	packOut     string
	packMaxSize int
)

func init() {
	cmd := newPackCmd()
	cmd.Flags().StringVarP(&packOut, "out", "o", "atlas-out", "Directory for layer PNG files")
	cmd.Flags().IntVar(&packMaxSize, "max-size", 0, "Shrink sprites to fit within this many pixels (0 keeps the size)")
	rootCmd.AddCommand(cmd)
}

func newPackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack <image>...",
		Short: "Pack images into atlas layers",
		Long: `The pack command places every image into an atlas, writes each atlas
layer as a PNG file and prints where every image landed.

Images are packed tallest first. An image that does not fit in an empty
layer is reported as skipped.

Example:
  atlasctl pack sprites/*.png
  atlasctl pack --max-size 64 -o out icons/*.png --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts := packOptions{outDir: packOut, maxSize: packMaxSize, json: jsonOut}
			_, err = runPack(cmd.OutOrStdout(), cfg, opts, args)
			return err
		},
	}
}

type packOptions struct {
	outDir  string
	maxSize int
	json    bool
}

type placement struct {
	File   string     `json:"file"`
	Layer  int        `json:"layer"`
	X      int        `json:"x"`
	Y      int        `json:"y"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	UV     [4]float32 `json:"uv"`
}

type packResult struct {
	Size       uint32      `json:"size"`
	Format     string      `json:"format"`
	LayerFiles []string    `json:"layer_files"`
	Placements []placement `json:"placements"`
	Skipped    []string    `json:"skipped,omitempty"`
}

type sprite struct {
	file string
	img  image.Image
}

func runPack(w io.Writer, cfg atlas.Config, opts packOptions, files []string) (*packResult, error) {
	sprites := make([]sprite, 0, len(files))
	for _, file := range files {
		img, err := imaging.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		if opts.maxSize > 0 {
			b := img.Bounds()
			if b.Dx() > opts.maxSize || b.Dy() > opts.maxSize {
				img = imaging.Fit(img, opts.maxSize, opts.maxSize, imaging.Lanczos)
			}
		}
		sprites = append(sprites, sprite{file: file, img: img})
	}
	slices.SortStableFunc(sprites, func(a, b sprite) int {
		return cmp.Compare(b.img.Bounds().Dy(), a.img.Bounds().Dy())
	})

	// Packing never evicts.
	cfg.UseRefCount = true
	dev := soft.New(nil)
	set, err := atlas.NewWithConfig[string, string](dev, cfg)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	size, _, _ := set.Size()
	result := &packResult{Size: size, Format: atlas.FormatName(set.Format())}
	for _, s := range sprites {
		id, ok := set.UploadImage(s.file, s.img, s.file)
		if !ok {
			result.Skipped = append(result.Skipped, s.file)
			continue
		}
		alloc, _ := set.Peek(id)
		result.Placements = append(result.Placements, placement{
			File:   s.file,
			Layer:  alloc.Layer,
			X:      alloc.Region.X,
			Y:      alloc.Region.Y,
			Width:  alloc.Region.Width,
			Height: alloc.Region.Height,
			UV:     alloc.UV(size),
		})
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", opts.outDir, err)
	}
	_, _, layers := set.Size()
	for i := range layers {
		img, err := dev.LayerImage(set.Texture(), i)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(opts.outDir, fmt.Sprintf("layer%d.png", i))
		if err := imaging.Save(img, path); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", path, err)
		}
		result.LayerFiles = append(result.LayerFiles, path)
	}

	if opts.json {
		return result, printJSON(w, result)
	}
	return result, printPlacements(w, result)
}

func printPlacements(w io.Writer, r *packResult) error {
	data := [][]string{
		{"File", "Layer", "X", "Y", "Size"},
	}
	for _, p := range r.Placements {
		data = append(data, []string{
			p.File,
			fmt.Sprintf("%d", p.Layer),
			fmt.Sprintf("%d", p.X),
			fmt.Sprintf("%d", p.Y),
			fmt.Sprintf("%dx%d", p.Width, p.Height),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "%d images in %d layers of %dx%d (%s)\n",
		len(r.Placements), len(r.LayerFiles), r.Size, r.Size, r.Format)
	for _, file := range r.Skipped {
		fmt.Fprintf(w, "skipped %s: does not fit\n", file)
	}
	return nil
}

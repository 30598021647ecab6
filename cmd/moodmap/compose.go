package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/youruser/moodmap/internal/board"
	"github.com/youruser/moodmap/internal/config"
	imagepkg "github.com/youruser/moodmap/internal/image"
	"github.com/youruser/moodmap/internal/layout"
	"github.com/youruser/moodmap/internal/logging"
	"github.com/youruser/moodmap/internal/style"
	"github.com/youruser/moodmap/internal/util"
)

// Manifest describes a grid in YAML. Relative slot paths resolve against
// the manifest's directory.
type Manifest struct {
	Title      string   `yaml:"title"`
	Background string   `yaml:"background"`
	TitleColor string   `yaml:"title_color"`
	CellSize   int      `yaml:"cell_size"`
	Gap        int      `yaml:"gap"`
	Slots      []string `yaml:"slots"`

	dir string
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return &m, nil
}

type composeOptions struct {
	manifest   string
	title      string
	background string
	titleColor string
	cellSize   int
	gap        int
	minSlots   int
	outDir     string

	// set reports whether a flag was given explicitly.
	set func(name string) bool
}

func newComposeCmd() *cobra.Command {
	var opts composeOptions
	cmd := &cobra.Command{
		Use:   "compose [image...]",
		Short: "Compose images into a moodmap JPEG",
		Long: `Each argument fills the next slot: a file path, an http(s) URL, or "-" for
an empty slot. Slots from --manifest come first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			opts.set = cmd.Flags().Changed
			path, err := runCompose(cmd.Context(), cfg, opts, args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.manifest, "manifest", "m", "", "YAML manifest describing the grid")
	f.StringVarP(&opts.title, "title", "t", "", "title drawn above the grid")
	f.StringVar(&opts.background, "background", style.LightBackground, "background colour (#rgb or #rrggbb)")
	f.StringVar(&opts.titleColor, "title-color", style.LightTitle, "title colour (#rgb or #rrggbb)")
	f.IntVar(&opts.cellSize, "cell-size", layout.DefaultCellSize, fmt.Sprintf("cell size in pixels (%d-%d)", layout.MinCellSize, layout.MaxCellSize))
	f.IntVar(&opts.gap, "gap", layout.DefaultGap, fmt.Sprintf("gap between cells in pixels (%d-%d)", layout.MinGap, layout.MaxGap))
	f.IntVar(&opts.minSlots, "slots", board.DefaultSlots, "minimum number of slots")
	f.StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	return cmd
}

// runCompose builds the grid, writes the JPEG and returns its path.
func runCompose(ctx context.Context, cfg *config.Config, opts composeOptions, args []string, stderr io.Writer) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.set == nil {
		opts.set = func(string) bool { return false }
	}

	sp := style.Params{Background: opts.background, Title: opts.title, TitleColor: opts.titleColor}
	lp := layout.Params{CellSize: opts.cellSize, Gap: opts.gap}
	var refs []string

	if opts.manifest != "" {
		m, err := loadManifest(opts.manifest)
		if err != nil {
			return "", err
		}
		override := func(flag string, dst *string, v string) {
			if v != "" && !opts.set(flag) {
				*dst = v
			}
		}
		override("title", &sp.Title, m.Title)
		override("background", &sp.Background, m.Background)
		override("title-color", &sp.TitleColor, m.TitleColor)
		if m.CellSize != 0 && !opts.set("cell-size") {
			lp.CellSize = m.CellSize
		}
		if m.Gap != 0 && !opts.set("gap") {
			lp.Gap = m.Gap
		}
		for _, ref := range m.Slots {
			if src, ok := imagepkg.SourceFor(ref, 0, 0).(imagepkg.FileSource); ok && !filepath.IsAbs(src.Path) {
				ref = filepath.Join(m.dir, src.Path)
			}
			refs = append(refs, ref)
		}
	}
	refs = append(refs, args...)

	var err error
	if sp.Background, err = style.NormalizeColor(sp.Background); err != nil {
		return "", fmt.Errorf("background: %w", err)
	}
	if sp.TitleColor, err = style.NormalizeColor(sp.TitleColor); err != nil {
		return "", fmt.Errorf("title colour: %w", err)
	}

	count := max(len(refs), opts.minSlots, 1)
	slots := make([]imagepkg.Slot, count)
	for i := range slots {
		slots[i].ID = fmt.Sprint(i)
		if i < len(refs) {
			slots[i].Source = imagepkg.SourceFor(refs[i], cfg.Export.FetchTimeout, cfg.Upload.MaxBytes)
		}
	}

	log, closer := logging.New(cfg.Logging)
	defer closer.Close()
	comp := cfg.Compositor()
	comp.Logger = log

	art, err := comp.Compose(ctx, slots, lp.Clamped(), sp)
	if err != nil {
		return "", err
	}
	path, err := util.WriteFileIn(opts.outDir, art.FileName, art.Data)
	if err != nil {
		return "", err
	}
	if art.FailedSlots > 0 {
		fmt.Fprintf(stderr, "warning: %d slot image(s) could not be read and were left empty\n", art.FailedSlots)
	}
	return path, nil
}

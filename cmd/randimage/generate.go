package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mrsinham/randimage/internal/config"
	"github.com/mrsinham/randimage/internal/encode"
	"github.com/mrsinham/randimage/internal/pipeline"
	"github.com/mrsinham/randimage/internal/thumbnail"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one or more random images",
	Example: `  # 512x512 RGB noise, reproducible
  randimage generate -W 512 -H 512 --seed 42 -o noise.png

  # 16-bit grayscale DICOM
  randimage generate --mode gray --depth 16 -o scan.dcm

  # 20 images named frame_000.png ... frame_019.png on 4 workers
  randimage generate --count 20 --workers 4 -o frames/frame.png

  # write to stdout
  randimage generate --seed 7 -o - > out.png`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.IntP("width", "W", 0, "Image width in pixels")
	f.IntP("height", "H", 0, "Image height in pixels")
	f.String("mode", "", "Color mode: gray, rgb, rgba")
	f.Int("depth", 0, "Bits per sample: 8 or 16")
	f.String("seed", "", "Seed, decimal or 0x-prefixed hex (random if not specified)")
	f.String("seed-phrase", "", "Derive the seed from a phrase")
	f.String("rng", "", "Random generator: pcg, chacha8")
	f.Bool("opaque-alpha", false, "Force the alpha channel of rgba images to fully opaque")
	f.String("format", "", "Output format: png, bmp, tiff, dicom (default: from the output extension)")
	f.String("compression", "", "PNG compression: default, speed, best, none")
	f.String("filter", "", "PNG scanline filter: none, sub, up, average, paeth, adaptive")
	f.String("label", "", "Text drawn on the image; {seed}, {width} and {height} are replaced")
	f.StringP("output", "o", "", "Output file, or - for stdout")
	f.Int("count", 0, "Number of images; seeds increase from the first one")
	f.Int("workers", 0, fmt.Sprintf("Parallel workers for --count (default: %d = CPU cores)", runtime.NumCPU()))
	f.String("thumbnail", "", "Also write a PNG preview to this path")
	f.Int("thumb-size", thumbnail.DefaultSize, "Preview bounding box in pixels")
	f.String("max-size", "", "Largest raw pixel buffer allowed, e.g. 512MB or 2GiB")
	f.String("save-config", "", "Save the effective settings to a YAML file (after generation)")
	rootCmd.AddCommand(generateCmd)
}

// applyGenerateFlags copies the flags the user set over the loaded settings.
func applyGenerateFlags(cmd *cobra.Command, g *config.Generate) {
	f := cmd.Flags()
	setInt := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	setString := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	setInt("width", &g.Width)
	setInt("height", &g.Height)
	setString("mode", &g.Mode)
	setInt("depth", &g.Depth)
	setString("seed", &g.Seed)
	setString("seed-phrase", &g.SeedPhrase)
	setString("rng", &g.Algorithm)
	if f.Changed("opaque-alpha") {
		g.OpaqueAlpha, _ = f.GetBool("opaque-alpha")
	}
	setString("format", &g.Format)
	setString("compression", &g.Compression)
	setString("filter", &g.Filter)
	setString("label", &g.Label)
	setString("output", &g.Output)
	setInt("count", &g.Count)
	setInt("workers", &g.Workers)
	setString("max-size", &g.MaxSize)

	// a seed on the command line replaces a phrase from the file, and back
	if f.Changed("seed") && !f.Changed("seed-phrase") {
		g.SeedPhrase = ""
	}
	if f.Changed("seed-phrase") && !f.Changed("seed") {
		g.Seed = ""
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return usageError(err)
	}
	applyGenerateFlags(cmd, &cfg.Generate)
	if err := cfg.Validate(); err != nil {
		return usageError(err)
	}
	g := cfg.Generate

	req, err := g.Request()
	if err != nil {
		return usageError(err)
	}
	format, err := g.OutputFormat()
	if err != nil {
		return usageError(err)
	}
	encOpts, err := g.EncodeOptions()
	if err != nil {
		return usageError(err)
	}
	maxBytes, err := g.MaxBytes()
	if err != nil {
		return usageError(err)
	}
	count := max(g.Count, 1)
	if g.Output == "-" && count > 1 {
		return usageError(errors.New("--count > 1 needs a file output, not stdout"))
	}

	// every image of a batch gets its own seed, derived from the first one
	base := req.ResolvedSeed()
	if count > 1 {
		encOpts.SeriesSeed = base
	}

	log := newLogger(mustBool(cmd, "verbose"), mustBool(cmd, "quiet"))
	coord := pipeline.New(pipeline.Options{
		Encode:   encOpts,
		Format:   format,
		Label:    g.Label,
		MaxBytes: maxBytes,
		Logger:   log,
		OnState: func(s pipeline.State) {
			log.Debug("state", "state", s)
		},
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	jobs := make([]pipeline.Job, count)
	for i := range jobs {
		jobs[i] = pipeline.Job{
			Request: req.WithSeed(base + uint64(i)),
			Sink:    outputSink(cmd.OutOrStdout(), g.Output, i, count),
		}
		if count > 1 {
			jobs[i].Instance = i + 1
		}
	}

	results, err := runJobs(ctx, coord, jobs, g.Workers)
	if err != nil {
		return err
	}

	if thumbPath, _ := cmd.Flags().GetString("thumbnail"); thumbPath != "" {
		size, _ := cmd.Flags().GetInt("thumb-size")
		if err := writeThumbnails(ctx, g, jobs, thumbPath, size, maxBytes, log); err != nil {
			return err
		}
	}

	if !mustBool(cmd, "quiet") {
		printSummary(cmd.ErrOrStderr(), g.Output, format, results)
	}

	if savePath, _ := cmd.Flags().GetString("save-config"); savePath != "" {
		// store the seed that was actually used so the run can be repeated
		if g.Seed == "" && g.SeedPhrase == "" {
			cfg.Generate.Seed = fmt.Sprint(base)
		}
		if err := config.Save(cfg, savePath); err != nil {
			return fmt.Errorf("%w: %w", pipeline.ErrIO, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Settings saved to %s\n", savePath)
	}
	return nil
}

func runJobs(ctx context.Context, coord *pipeline.Coordinator, jobs []pipeline.Job, workers int) ([]pipeline.Result, error) {
	if len(jobs) == 1 {
		res, err := coord.Run(ctx, jobs[0].Request, jobs[0].Sink)
		return []pipeline.Result{res}, err
	}
	return coord.RunBatch(ctx, jobs, workers, nil)
}

// outputSink returns stdout for "-", otherwise a file sink named after
// indexedPath.
func outputSink(stdout io.Writer, output string, i, count int) pipeline.Sink {
	if output == "-" {
		return pipeline.WriterSink{W: stdout, Name: "stdout"}
	}
	return pipeline.NewFileSink(indexedPath(output, i, count))
}

// indexedPath returns path unchanged for single images. For batches it
// replaces {n} with the zero-padded index, or inserts _NNN before the
// extension.
func indexedPath(path string, i, count int) string {
	if count <= 1 {
		return path
	}
	width := len(fmt.Sprint(count - 1))
	if width < 3 {
		width = 3
	}
	n := fmt.Sprintf("%0*d", width, i)
	if strings.Contains(path, "{n}") {
		return strings.ReplaceAll(path, "{n}", n)
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + n + ext
}

func writeThumbnails(ctx context.Context, g config.Generate, jobs []pipeline.Job, path string, size int, maxBytes int64, log *slog.Logger) error {
	if size <= 0 {
		return usageError(fmt.Errorf("--thumb-size must be positive, got %d", size))
	}
	encOpts, _ := g.EncodeOptions()
	coord := pipeline.New(pipeline.Options{Encode: encOpts, Format: encode.PNG, Label: g.Label, MaxBytes: maxBytes, Logger: log})
	for i, job := range jobs {
		data, _, err := coord.RenderThumbnail(ctx, job.Request, size, size)
		if err != nil {
			return fmt.Errorf("thumbnail: %w", err)
		}
		dest := indexedPath(path, i, len(jobs))
		if _, err := pipeline.NewFileSink(dest).Write(ctx, data); err != nil {
			return err
		}
		log.Debug("thumbnail written", "path", dest, "bytes", len(data))
	}
	return nil
}

func printSummary(w io.Writer, output string, format encode.Format, results []pipeline.Result) {
	var total int64
	for _, r := range results {
		total += r.BytesWritten
	}
	dest := output
	if output == "-" {
		dest = "stdout"
	}
	if len(results) == 1 {
		r := results[0]
		fmt.Fprintf(w, "✓ %dx%d %s written to %s (%s, seed %d)\n",
			r.Width, r.Height, strings.ToUpper(string(format)), dest, humanize.Bytes(uint64(r.BytesWritten)), r.Seed)
		return
	}
	fmt.Fprintf(w, "✓ %d %s images written next to %s (%s total, seeds %d-%d)\n",
		len(results), strings.ToUpper(string(format)), dest, humanize.Bytes(uint64(total)),
		results[0].Seed, results[len(results)-1].Seed)
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

package cmd

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/noisegen/internal/colormap"
	"github.com/MeKo-Tech/noisegen/internal/raster"
	"github.com/MeKo-Tech/noisegen/internal/worker"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Sample a region and print value statistics",
	Long: `Sample the fractal over a rectangle of noise space and print summary
statistics, a value histogram and the average palette color. Nothing is
written to disk.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().String("bbox", "0,0,1,1", "Noise-space rectangle: minX,minY,maxX,maxY")
	statsCmd.Flags().Int("width", 256, "Grid width in pixels")
	statsCmd.Flags().Int("height", 256, "Grid height in pixels")
	statsCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	statsCmd.Flags().String("palette", "gray", "Palette ("+strings.Join(colormap.Names(), ", ")+")")
	statsCmd.Flags().Int("supersample", 1, "Sample at N times the resolution and downsample the colored image")
	statsCmd.Flags().Bool("progress", true, "Log sampling progress")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"stats.bbox", "bbox"},
		{"stats.width", "width"},
		{"stats.height", "height"},
		{"stats.workers", "workers"},
		{"stats.palette", "palette"},
		{"stats.supersample", "supersample"},
		{"stats.progress", "progress"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, statsCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	bboxStr := viper.GetString("stats.bbox")
	width := viper.GetInt("stats.width")
	height := viper.GetInt("stats.height")
	workers := viper.GetInt("stats.workers")
	paletteName := viper.GetString("stats.palette")
	supersample := viper.GetInt("stats.supersample")
	showProgress := viper.GetBool("stats.progress")

	bound, err := parseBBox(bboxStr)
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}
	palette, err := colormap.ByName(paletteName)
	if err != nil {
		return err
	}
	if supersample < 1 {
		return fmt.Errorf("--supersample must be >= 1, got %d", supersample)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	_, f, err := noiseFromConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	req := raster.Request{
		Bound:   bound,
		Width:   width * supersample,
		Height:  height * supersample,
		Source:  f,
		Workers: workers,
	}
	var progressLog *slog.Logger
	if showProgress {
		progressLog = logger
	}
	progress := worker.NewProgress(req.Height, req.Width, progressLog)
	req.OnProgress = progress.Callback()

	logger.Info("Sampling region",
		"bbox", bboxStr,
		"width", req.Width,
		"height", req.Height,
		"workers", workers,
		"octaves", f.Octaves().Count,
	)

	grid, err := raster.Sample(ctx, req)
	if err != nil {
		return err
	}
	logger.Info(progress.Summary())

	img := raster.Colorize(grid, palette)
	if supersample > 1 {
		img = raster.Downsample(img, width, height)
	}

	printStats(cmd.OutOrStdout(), raster.Summarize(grid), raster.ByteHistogram(grid), img)
	return nil
}

func printStats(w io.Writer, s raster.Stats, bytes [256]int, img *image.RGBA) {
	fmt.Fprintf(w, "samples:  %d (nan %d)\n", s.Count, s.NaN)
	fmt.Fprintf(w, "min:      %.6f\n", s.Min)
	fmt.Fprintf(w, "max:      %.6f\n", s.Max)
	fmt.Fprintf(w, "mean:     %.6f\n", s.Mean)
	fmt.Fprintf(w, "stddev:   %.6f\n", s.StdDev)

	peak := 0
	for _, c := range s.Histogram {
		peak = max(peak, c)
	}
	fmt.Fprintln(w, "histogram:")
	for i, c := range s.Histogram {
		lo := -1 + 2*float64(i)/raster.HistogramBins
		hi := lo + 2.0/raster.HistogramBins
		bar := 0
		if peak > 0 {
			bar = c * 40 / peak
		}
		fmt.Fprintf(w, "  [%+.3f, %+.3f) %8d %s\n", lo, hi, c, strings.Repeat("#", bar))
	}

	levels, lo, hi := 0, -1, -1
	for b, c := range bytes {
		if c == 0 {
			continue
		}
		levels++
		if lo < 0 {
			lo = b
		}
		hi = b
	}
	fmt.Fprintf(w, "byte levels: %d (range %d..%d)\n", levels, lo, hi)

	r, g, b := averageColor(img)
	fmt.Fprintf(w, "image: %dx%d average color #%02x%02x%02x\n", img.Bounds().Dx(), img.Bounds().Dy(), r, g, b)
}

func averageColor(img *image.RGBA) (uint8, uint8, uint8) {
	var r, g, b, n uint64
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			r += uint64(c.R)
			g += uint64(c.G)
			b += uint64(c.B)
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	return uint8(r / n), uint8(g / n), uint8(b / n)
}

// parseBBox parses a rectangle string "minX,minY,maxX,maxY" into an orb.Bound.
func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var vals [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		vals[i] = val
	}

	if !(vals[0] < vals[2]) {
		return orb.Bound{}, fmt.Errorf("minX (%.4f) must be < maxX (%.4f)", vals[0], vals[2])
	}
	if !(vals[1] < vals[3]) {
		return orb.Bound{}, fmt.Errorf("minY (%.4f) must be < maxY (%.4f)", vals[1], vals[3])
	}

	return orb.Bound{Min: orb.Point{vals[0], vals[1]}, Max: orb.Point{vals[2], vals[3]}}, nil
}

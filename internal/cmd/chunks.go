package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/noisegen/internal/chunk"
	"github.com/MeKo-Tech/noisegen/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Summarize a range of chunks",
	RunE:  runChunks,
}

func init() {
	rootCmd.AddCommand(chunksCmd)

	chunksCmd.Flags().String("range", "0,0,0,0", "Inclusive chunk range: minCX,minCY,maxCX,maxCY")
	chunksCmd.Flags().Float64("chunk-size", 1, "Noise-space side length of one chunk")
	chunksCmd.Flags().Int("resolution", 64, "Pixels per chunk side")
	chunksCmd.Flags().IntP("workers", "w", 0, "Row workers per chunk (default: 1)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"chunks.range", "range"},
		{"chunks.size", "chunk-size"},
		{"chunks.resolution", "resolution"},
		{"chunks.workers", "workers"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, chunksCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runChunks(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	rng, err := parseRange(viper.GetString("chunks.range"))
	if err != nil {
		return fmt.Errorf("invalid range: %w", err)
	}

	src, f, err := noiseFromConfig(viper.GetViper())
	if err != nil {
		return err
	}

	sampling, err := server.NewSampling(server.SamplingConfig{
		Source:          src,
		Fractal:         f,
		ChunkSize:       viper.GetFloat64("chunks.size"),
		ChunkResolution: viper.GetInt("chunks.resolution"),
		WorkersPerChunk: viper.GetInt("chunks.workers"),
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("Summarizing chunks", "count", rng.Count())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	for _, c := range rng.Coords() {
		resp, err := sampling.SampleChunk(ctx, c, false)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", c.String(), err)
		}
		s := resp.Stats
		logger.Debug("chunk summarized", "chunk", resp.Chunk, "center", c.Center(sampling.ChunkSize()))
		fmt.Fprintf(out, "%-14s min %+.4f max %+.4f mean %+.4f stddev %.4f\n", resp.Chunk, s.Min, s.Max, s.Mean, s.StdDev)
	}
	return nil
}

// maxChunks bounds one chunks invocation.
const maxChunks = 1 << 16

// parseRange parses "minCX,minCY,maxCX,maxCY" into an inclusive chunk range.
func parseRange(s string) (chunk.Range, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return chunk.Range{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var vals [4]int32
	for i, part := range parts {
		val, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return chunk.Range{}, fmt.Errorf("invalid integer at position %d: %w", i, err)
		}
		vals[i] = int32(val)
	}

	r := chunk.Range{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}
	if err := r.Validate(); err != nil {
		return chunk.Range{}, err
	}
	if n := r.Count(); n > maxChunks {
		return chunk.Range{}, fmt.Errorf("range covers %d chunks, at most %d allowed", n, maxChunks)
	}
	return r, nil
}

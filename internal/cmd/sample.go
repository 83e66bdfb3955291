package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/noisegen/internal/colormap"
	"github.com/MeKo-Tech/noisegen/internal/perlin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Evaluate noise at a single point",
	RunE:  runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().Float64("x", 0, "X coordinate")
	sampleCmd.Flags().Float64("y", 0, "Y coordinate")
	sampleCmd.Flags().Bool("fractal", false, "Evaluate the fractal sum instead of a single octave")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"sample.x", "x"},
		{"sample.y", "y"},
		{"sample.fractal", "fractal"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, sampleCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runSample(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	x := viper.GetFloat64("sample.x")
	y := viper.GetFloat64("sample.y")

	src, f, err := noiseFromConfig(viper.GetViper())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if viper.GetBool("sample.fractal") {
		raw := f.Sum(x, y)
		v := perlin.Clamp(raw)
		logger.Debug("fractal sample", "x", x, "y", y, "octaves", f.Octaves().Count)
		fmt.Fprintf(out, "fractal(%g, %g) = %v (raw %v, byte %d)\n", x, y, v, raw, colormap.ToByte(v))
		return nil
	}

	v := src.Noise2D(x, y)
	logger.Debug("noise sample", "x", x, "y", y)
	fmt.Fprintf(out, "noise(%g, %g) = %v (byte %d)\n", x, y, v, colormap.ToByte(v))
	return nil
}

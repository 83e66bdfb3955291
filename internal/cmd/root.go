package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/noisegen/internal/perlin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "noisegen",
	Short: "A deterministic 2D Perlin noise sampler",
	Long: `noisegen evaluates classic 2D Perlin noise and a fractal sum of octaves.

It samples single points, summarizes rectangular regions and chunk grids,
and serves samples as JSON over HTTP.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := perlin.DefaultOctaves()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.Int("octaves", defaults.Count, "Number of fractal octaves")
	flags.Float64("frequency", defaults.Frequency, "Starting frequency of the first octave")
	flags.Float64("amplitude", defaults.Amplitude, "Starting amplitude of the first octave")
	flags.Float64("lacunarity", defaults.Lacunarity, "Frequency multiplier per octave")
	flags.Float64("gain", defaults.Gain, "Amplitude multiplier per octave")
	flags.String("source", perlin.SourceReference, "Noise source (reference, seeded)")
	flags.Int64("seed", 1337, "Seed for the seeded noise source")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"verbose", "verbose"},
		{"fractal.octaves", "octaves"},
		{"fractal.frequency", "frequency"},
		{"fractal.amplitude", "amplitude"},
		{"fractal.lacunarity", "lacunarity"},
		{"fractal.gain", "gain"},
		{"fractal.source", "source"},
		{"fractal.seed", "seed"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, flags.Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("NOISEGEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// octavesFromConfig reads the fractal parameters from v.
func octavesFromConfig(v *viper.Viper) perlin.Octaves {
	return perlin.Octaves{
		Count:      v.GetInt("fractal.octaves"),
		Frequency:  v.GetFloat64("fractal.frequency"),
		Amplitude:  v.GetFloat64("fractal.amplitude"),
		Lacunarity: v.GetFloat64("fractal.lacunarity"),
		Gain:       v.GetFloat64("fractal.gain"),
	}
}

// noiseFromConfig builds the single-octave source and the fractal combiner
// described by v.
func noiseFromConfig(v *viper.Viper) (perlin.Source, *perlin.Fractal, error) {
	src, err := perlin.NewSource(v.GetString("fractal.source"), v.GetInt64("fractal.seed"))
	if err != nil {
		return nil, nil, err
	}
	f, err := perlin.NewFractal(src, octavesFromConfig(v))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid fractal config: %w", err)
	}
	return src, f, nil
}

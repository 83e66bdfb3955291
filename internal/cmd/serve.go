package cmd

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/MeKo-Tech/noisegen/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve point and chunk samples as JSON",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Float64("chunk-size", 1, "Noise-space side length of one chunk")
	serveCmd.Flags().Int("chunk-resolution", 64, "Pixels per chunk side")
	serveCmd.Flags().Int("max-concurrent-chunks", runtime.NumCPU(), "Max concurrent chunk samplings (default: number of CPUs)")
	serveCmd.Flags().Int("workers-per-chunk", 1, "Row workers inside one chunk sampling")
	serveCmd.Flags().Duration("chunk-timeout", 30*time.Second, "Timeout per chunk sampling")
	serveCmd.Flags().String("cache-control", "", "Cache-Control header for samples (default: immutable)")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.chunk_size", "chunk-size")
	mustBind("serve.chunk_resolution", "chunk-resolution")
	mustBind("serve.max_concurrent_chunks", "max-concurrent-chunks")
	mustBind("serve.workers_per_chunk", "workers-per-chunk")
	mustBind("serve.chunk_timeout", "chunk-timeout")
	mustBind("serve.cache_control", "cache-control")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	maxConc := viper.GetInt("serve.max_concurrent_chunks")

	src, f, err := noiseFromConfig(viper.GetViper())
	if err != nil {
		return err
	}

	sampling, err := server.NewSampling(server.SamplingConfig{
		Source:              src,
		Fractal:             f,
		ChunkSize:           viper.GetFloat64("serve.chunk_size"),
		ChunkResolution:     viper.GetInt("serve.chunk_resolution"),
		MaxConcurrentChunks: maxConc,
		WorkersPerChunk:     viper.GetInt("serve.workers_per_chunk"),
		ChunkTimeout:        viper.GetDuration("serve.chunk_timeout"),
		CacheControl:        viper.GetString("serve.cache_control"),
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("sampling server listening",
		"addr", addr,
		"source", viper.GetString("fractal.source"),
		"octaves", f.Octaves().Count,
		"max_concurrent_chunks", maxConc,
	)

	srv := &http.Server{Addr: addr, Handler: withCORS(sampling.Handler()), ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Command algoviz строит трассы алгоритмов сортировки, проигрывает их в терминале
// и поднимает HTTP API для сессий визуализации.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/pv/algoviz-go/internal/api"
	"github.com/pv/algoviz-go/internal/generator"
	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/storage/memstore"
	"github.com/pv/algoviz-go/pkg/config"
)

var version = "0.3.0-dev"

type globalOptions struct {
	configPath string
	logFile    string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "algoviz",
		Short:         "Step traces and playback for sorting algorithms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := configureLogging(opts.logFile); err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			api.SetDebugLogging(opts.debug)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML/JSON config")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "append logs to file instead of stderr")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "verbose logs for playback, HTTP and WebSocket")

	root.AddCommand(traceCmd(opts))
	root.AddCommand(playCmd(opts))
	root.AddCommand(serveCmd(opts))
	root.AddCommand(listingCmd(opts))
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "algoviz %s\n", version)
		},
	}
}

func loadConfig(opts *globalOptions) (*config.Config, error) {
	if opts.configPath == "" {
		return config.Defaults(), nil
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	log.Printf("config: loaded %s", opts.configPath)
	return cfg, nil
}

// newRegistry собирает генератор с листингами из конфига и общим кэшем трасс.
func newRegistry(cfg *config.Config) (*generator.Registry, error) {
	var mapper *listing.Mapper
	if cfg.Listings != "" {
		m, err := listing.Load(cfg.Listings)
		if err != nil {
			return nil, err
		}
		mapper = m
	}
	regOpts := []generator.Option{generator.WithObserver(api.ObserveTrace)}
	if cfg.CacheSize > 0 {
		regOpts = append(regOpts, generator.WithStore(memstore.New(cfg.CacheSize)))
	}
	return generator.NewRegistry(mapper, regOpts...), nil
}

func configureLogging(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	log.SetOutput(f)
	return nil
}

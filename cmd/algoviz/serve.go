package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pv/algoviz-go/internal/api"
	"github.com/pv/algoviz-go/internal/playback"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control API for visualization sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTP.Addr = httpAddr
			}
			reg, err := newRegistry(cfg)
			if err != nil {
				return err
			}

			ctrlOpts := []playback.Option{
				playback.WithBaseInterval(time.Duration(cfg.Playback.BaseInterval)),
				playback.WithSpeed(cfg.Playback.Speed),
			}
			if api.DebugLogging() {
				ctrlOpts = append(ctrlOpts, playback.WithLogger(log.Default()))
			}
			streamer := api.NewStateStreamer()
			mgr := api.NewManager(reg, playback.NewTimerScheduler(), streamer, ctrlOpts...)
			server := api.NewServer(mgr, streamer)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Listen(gctx, cfg.HTTP.Addr)
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Printf("[http] shutting down, closing %d sessions", len(mgr.List()))
				mgr.Close()
				return nil
			})
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address (overrides config)")
	return cmd
}

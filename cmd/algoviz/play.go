package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pv/algoviz-go/internal/input"
	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/playback"
	"github.com/pv/algoviz-go/internal/render"
	"github.com/pv/algoviz-go/pkg/config"
)

func playCmd(opts *globalOptions) *cobra.Command {
	var (
		algo     string
		text     string
		speed    float64
		interval time.Duration
		noColor  bool
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a sorting trace in the terminal",
		Long: `Play a sorting trace in the terminal with the current source line highlighted.

Examples:
  algoviz play --algo bubble --input 5,3,8,6,2
  algoviz play --algo merge --input 9,1,8,2 --speed 2
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("speed") {
				cfg.Playback.Speed = speed
			}
			if cmd.Flags().Changed("interval") {
				cfg.Playback.BaseInterval = config.Duration(interval)
			}
			if noColor {
				color.NoColor = true
			}

			alg, err := listing.ParseAlgorithm(algo)
			if err != nil {
				return err
			}
			seq, err := input.ParseSequence(text)
			if err != nil {
				return err
			}
			reg, err := newRegistry(cfg)
			if err != nil {
				return err
			}
			tr, err := reg.Generate(alg, seq)
			if err != nil {
				return err
			}
			l, err := reg.Mapper().Listing(alg)
			if err != nil {
				return err
			}

			ctrlOpts := []playback.Option{
				playback.WithBaseInterval(time.Duration(cfg.Playback.BaseInterval)),
			}
			if opts.debug {
				ctrlOpts = append(ctrlOpts, playback.WithLogger(log.Default()))
			}
			ctrl := playback.New(nil, ctrlOpts...)
			defer ctrl.Close()
			if err := ctrl.SetSpeed(cfg.Playback.Speed); err != nil {
				return fmt.Errorf("speed %v: %w", cfg.Playback.Speed, err)
			}
			if err := ctrl.Load(tr); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			sink := &render.TextSink{
				Writer:      cmd.OutOrStdout(),
				Listing:     &l,
				NoColor:     color.NoColor,
				ClearScreen: !color.NoColor,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return render.Follow(gctx, ctrl, sink)
			})
			if err := ctrl.Play(); err != nil {
				return err
			}
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&algo, "algo", string(listing.Bubble), "algorithm id: bubble, insertion, quick, merge")
	cmd.Flags().StringVar(&text, "input", "5,3,8,6,2", "comma-separated integers")
	cmd.Flags().Float64Var(&speed, "speed", 1, "speed multiplier (overrides config)")
	cmd.Flags().DurationVar(&interval, "interval", playback.DefaultBaseInterval, "delay between steps at speed 1 (overrides config)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

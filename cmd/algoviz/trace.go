package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pv/algoviz-go/internal/generator"
	"github.com/pv/algoviz-go/internal/input"
	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/render"
	"github.com/pv/algoviz-go/internal/trace"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func traceCmd(opts *globalOptions) *cobra.Command {
	var selector, text, sourcePath, format string

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the step trace of one or more algorithms",
		Long: `Print the step trace for an input sequence.

Examples:
  algoviz trace --input 5,3,8,6,2
  algoviz trace --algo quick,merge --input "4, -1, 4, 0"
  algoviz trace --algo "*-sort" --input 3,2,1 --format json
  algoviz trace --source main.c
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != formatTable && format != formatJSON {
				return fmt.Errorf("unknown format %q", format)
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			reg, err := newRegistry(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if sourcePath != "" {
				src, err := readSource(sourcePath, cmd.InOrStdin())
				if err != nil {
					return err
				}
				tr := reg.GenerateSource(src)
				l := listing.FromSource(src)
				return writeTrace(out, format, []trace.Trace{tr}, []*listing.Listing{&l})
			}

			if text == "" {
				return errors.New("--input is required (or --source for the line stepper)")
			}
			seq, err := input.ParseSequence(text)
			if err != nil {
				return err
			}
			algs, err := cfg.Resolve(selector)
			if err != nil {
				return err
			}
			traces, listings, err := generateAll(reg, algs, seq)
			if err != nil {
				return err
			}
			return writeTrace(out, format, traces, listings)
		},
	}
	cmd.Flags().StringVar(&selector, "algo", "ALL", "algorithm selector: ALL, set name, id, glob or comma list")
	cmd.Flags().StringVar(&text, "input", "", "comma-separated integers, e.g. 5,3,8")
	cmd.Flags().StringVar(&sourcePath, "source", "", "step through the lines of a source file ('-' for stdin)")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table or json")
	return cmd
}

func generateAll(reg *generator.Registry, algs []listing.Algorithm, seq input.Sequence) ([]trace.Trace, []*listing.Listing, error) {
	traces := make([]trace.Trace, 0, len(algs))
	listings := make([]*listing.Listing, 0, len(algs))
	for _, alg := range algs {
		tr, err := reg.Generate(alg, seq)
		if err != nil {
			return nil, nil, err
		}
		l, err := reg.Mapper().Listing(alg)
		if err != nil {
			return nil, nil, err
		}
		traces = append(traces, tr)
		listings = append(listings, &l)
	}
	return traces, listings, nil
}

func writeTrace(w io.Writer, format string, traces []trace.Trace, listings []*listing.Listing) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(traces) == 1 {
			return enc.Encode(traces[0])
		}
		return enc.Encode(traces)
	}
	for i, tr := range traces {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, render.Table(tr, listings[i]))
	}
	return nil
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

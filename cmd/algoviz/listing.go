package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pv/algoviz-go/internal/listing"
)

func listingCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listing [algorithm]",
		Short: "Show the canonical listing of an algorithm with its named lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			reg, err := newRegistry(cfg)
			if err != nil {
				return err
			}
			mapper := reg.Mapper()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, alg := range mapper.Algorithms() {
					l, _ := mapper.Listing(alg)
					fmt.Fprintf(out, "%-16s %s (time %s, space %s)\n", alg, l.Title, l.Complexity.Time, l.Complexity.Space)
				}
				return nil
			}

			alg, err := listing.ParseAlgorithm(args[0])
			if err != nil {
				return err
			}
			l, err := mapper.Listing(alg)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderListing(l))
			return nil
		},
	}
}

func renderListing(l listing.Listing) string {
	byLine := map[int][]string{}
	for name, n := range l.Anchors {
		byLine[n] = append(byLine[n], name)
	}
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(fmt.Sprintf("%s  time %s  space %s", l.Title, l.Complexity.Time, l.Complexity.Space))
	tbl.AppendHeader(table.Row{"Line", "Anchor", "Source"})
	for i, text := range l.Lines {
		anchors := byLine[i+1]
		sort.Strings(anchors)
		tbl.AppendRow(table.Row{i + 1, strings.Join(anchors, ","), text})
	}
	return tbl.Render()
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mrsinham/randimage/internal/encode"
	"github.com/mrsinham/randimage/internal/pixel"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List output formats with the color modes and depths they store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FORMAT\tEXTENSION\tMODES\tDEPTHS")
		for _, f := range encode.AllFormats() {
			var modes, depths []string
			for _, m := range pixel.AllColorModes() {
				if f.Supports(m, pixel.Depth8) {
					modes = append(modes, m.String())
				}
			}
			for _, d := range []pixel.Depth{pixel.Depth8, pixel.Depth16} {
				if f.Supports(pixel.Grayscale, d) {
					depths = append(depths, fmt.Sprint(int(d)))
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f, f.Extension(), strings.Join(modes, ","), strings.Join(depths, ","))
		}
		return tw.Flush()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "randimage %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd, versionCmd)
}

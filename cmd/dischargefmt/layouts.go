package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stealthcompany.com/dischargeformat/internal/layout"
)

func layoutsCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "layouts [family]",
		Short: "List layout families or print the fields of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, family := range layout.Families() {
					fmt.Fprintln(out, family)
				}
				return nil
			}

			lay, err := layout.Load(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tWIDTH\tJUSTIFY\tOFFSET")
			offset := 0
			for _, f := range lay.Fields(verbose) {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\n", f.Key, f.Name, f.Width, f.Justify, offset)
				offset += f.Width
			}
			fmt.Fprintf(tw, "\t\t%d\t\t\n", lay.RecordWidth(verbose))
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "include raw list columns")
	return cmd
}

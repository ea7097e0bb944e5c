package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/ayursense/internal/domain/session"
)

var conditionsCmd = &cobra.Command{
	Use:   "conditions",
	Short: "List selectable conditions",
	Long:  `Display the conditions accepted by analyze --condition.`,
	RunE:  runConditions,
}

func init() {
	rootCmd.AddCommand(conditionsCmd)
}

func runConditions(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tTITLE\tDESCRIPTION")
	for _, c := range session.Catalogue() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Kind, c.Title, c.Description)
	}
	return w.Flush()
}

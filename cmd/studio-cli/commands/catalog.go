package commands

import (
	"studiocheck/internal/registry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Lists every resource that can be checked.",
	Run: func(cmd *cobra.Command, args []string) {
		t := newTable()
		t.AppendHeader(table.Row{"ID", "Name", "Studios", "Kind", "URL"})
		for _, r := range registry.All() {
			t.AppendRow(table.Row{r.ID, r.Name, r.StudioCount, r.Kind, r.URL})
		}
		t.Render()
	},
}

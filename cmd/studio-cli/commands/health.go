package commands

import (
	"fmt"
	"strings"
	"studiocheck/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Pings the scraper service, waking it up if it is asleep.",
	Run: func(cmd *cobra.Command, args []string) {
		health, err := newDelegate().Health(cmd.Context())
		if err != nil {
			serviceutil.Fatal("delegate health", err)
		}
		fmt.Printf("%s %s (%s)\n", delegateURL, health.Status, health.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("  civic hall: %s [%s]\n", health.CivicHallStrategy, strings.Join(health.AvailableCivicHallRooms, ", "))
		fmt.Printf("  crea:       %s [%s]\n", health.CreaStrategy, strings.Join(health.AvailableCreaStudios, ", "))
	},
}

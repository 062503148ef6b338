package commands

import (
	"fmt"
	"os"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/registry"
	"studiocheck/internal/scrapers/buzz"
	"studiocheck/internal/scrapers/civichall"
	"studiocheck/internal/scrapers/crea"
	"studiocheck/internal/window"
	"studiocheck/lib/serviceutil"
	"studiocheck/lib/textutil"
	"time"

	"github.com/spf13/cobra"
)

var (
	scrapeDate        string
	scrapeRooms       string
	scrapeStudios     string
	scrapeWindow      string
	civicHallStrategy string
	creaStrategy      string
	scrapeShowBrowser bool
	scrapeAuthFile    string
)

func init() {
	scrapeCmd.PersistentFlags().StringVarP(&scrapeDate, "date", "d", "", "Date to scrape as YYYY-MM-DD (defaults to today in Tokyo).")
	scrapeCmd.PersistentFlags().BoolVar(&scrapeShowBrowser, "show-browser", false, "Run chrome with a visible window.")

	scrapeCivicHallCmd.Flags().StringVar(&scrapeRooms, "rooms", "", "Comma separated room ids (defaults to every room).")
	scrapeCivicHallCmd.Flags().StringVarP(&civicHallStrategy, "strategy", "s", strategyBrowser, "delegate, form or browser.")

	scrapeCreaCmd.Flags().StringVar(&scrapeStudios, "studios", "", "Comma separated studio ids (defaults to every studio).")
	scrapeCreaCmd.Flags().StringVarP(&scrapeWindow, "window", "w", "", "Only scrape slots applicable to HH:MM,HH:MM.")
	scrapeCreaCmd.Flags().StringVarP(&creaStrategy, "strategy", "s", strategyAPI, "delegate, api or browser.")
	scrapeCreaCmd.Flags().StringVar(&scrapeAuthFile, "auth-file", crea.DefaultAuthFile, "Session state used by the browser strategy.")

	scrapeCmd.AddCommand(scrapeCivicHallCmd)
	scrapeCmd.AddCommand(scrapeCreaCmd)
	scrapeCmd.AddCommand(scrapeBuzzCmd)
	rootCmd.AddCommand(scrapeCmd)
}

func scrapeDay() time.Time {
	if scrapeDate == "" {
		return chrono.StartOfDay(chrono.NewStandardImpl().Now())
	}
	date, err := chrono.ParseDate(scrapeDate)
	if err != nil {
		serviceutil.Fatal("parse date", err)
	}
	return date
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Runs a single site scraper directly, bypassing the aggregator.",
}

var scrapeCivicHallCmd = &cobra.Command{
	Use:   "civic-hall",
	Short: "Scrapes the civic hall rehearsal and practice rooms.",
	Run: func(cmd *cobra.Command, args []string) {
		date := scrapeDay()
		ids := textutil.SplitList(scrapeRooms)
		if len(ids) == 0 {
			ids = civichall.RoomIDs()
		}

		fetcher, closeFetcher, err := newRoomFetcher(civicHallStrategy, scrapeShowBrowser)
		if err != nil {
			serviceutil.Fatal("init civic hall fetcher", err)
		}
		defer closeFetcher()

		rooms, err := fetcher.FetchRooms(cmd.Context(), date, ids)
		if err != nil {
			serviceutil.Fatal("scrape civic hall", err)
		}
		if len(rooms) == 0 {
			fmt.Println("no rooms found")
			return
		}
		printRooms(rooms)
	},
}

var scrapeCreaCmd = &cobra.Command{
	Use:   "crea",
	Short: "Scrapes the CREA studios.",
	Run: func(cmd *cobra.Command, args []string) {
		date := scrapeDay()
		w, err := window.Parse(scrapeWindow)
		if err != nil {
			serviceutil.Fatal("parse window", err)
		}
		ids := textutil.SplitList(scrapeStudios)
		if len(ids) == 0 {
			ids = crea.StudioIDs()
		}

		fetcher, closeFetcher, err := newStudioFetcher(creaStrategy, scrapeAuthFile, scrapeShowBrowser)
		if err != nil {
			serviceutil.Fatal("init crea fetcher", err)
		}
		defer closeFetcher()

		studios, err := fetcher.FetchStudios(cmd.Context(), date, ids, w)
		if err != nil {
			serviceutil.Fatal("scrape crea", err)
		}
		printStudios(studios)
	},
}

var scrapeBuzzCmd = &cobra.Command{
	Use:   "buzz <resource-id>",
	Short: "Scrapes the day page of one BUZZ studio.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resource, ok := registry.Lookup(args[0])
		if !ok || resource.Kind != availability.PayloadTable {
			fmt.Fprintf(os.Stderr, "%q is not a BUZZ studio.\n", args[0])
			var candidates []string
			for _, r := range registry.OfKind(availability.PayloadTable) {
				candidates = append(candidates, r.ID)
			}
			suggestion, found := textutil.ClosestMatch(args[0], candidates, 0.7)
			if found {
				fmt.Fprintf(os.Stderr, "did you mean %q?\n", suggestion)
			}
			os.Exit(1)
		}

		client, err := buzz.NewClient(buzz.Options{
			Output: restyOutput("buzz"),
		}, tel())
		if err != nil {
			serviceutil.Fatal("init buzz client", err)
		}
		slots, err := client.FetchDay(cmd.Context(), resource, scrapeDay())
		if err != nil {
			serviceutil.Fatal("scrape buzz", err)
		}
		if len(slots) == 0 {
			fmt.Println("no slots found")
			return
		}
		printTimeSlots(slots)
	},
}

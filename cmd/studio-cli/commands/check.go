package commands

import (
	"fmt"
	"strings"
	"studiocheck/internal/aggregator"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/scrapers/buzz"
	"studiocheck/internal/scrapers/civichall"
	"studiocheck/internal/scrapers/crea"
	"studiocheck/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	checkDate        string
	checkWindow      string
	checkParallelism int
	checkCivicHall   string
	checkCrea        string
	checkAuthFile    string
	checkJSON        bool
)

func init() {
	checkCmd.Flags().StringVarP(&checkDate, "date", "d", "", "Date to check as YYYY-MM-DD (defaults to today in Tokyo).")
	checkCmd.Flags().StringVarP(&checkWindow, "window", "w", "", "Only show slots inside HH:MM,HH:MM.")
	checkCmd.Flags().IntVarP(&checkParallelism, "parallelism", "p", 0, "Number of resources fetched at once (0 fetches all of them at once).")
	checkCmd.Flags().StringVar(&checkCivicHall, "civic-hall", strategyDelegate, "Civic hall strategy: delegate, form or browser.")
	checkCmd.Flags().StringVar(&checkCrea, "crea", strategyDelegate, "CREA strategy: delegate, api or browser.")
	checkCmd.Flags().StringVar(&checkAuthFile, "auth-file", crea.DefaultAuthFile, "CREA session state used by the browser strategy.")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the response as JSON instead of tables.")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <resource-id>...",
	Short: "Checks the availability of one or more resources on a date.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		date := checkDate
		if date == "" {
			date = chrono.FormatDate(chrono.NewStandardImpl().Now())
		}
		req, err := aggregator.ParseRequest(strings.Join(args, ","), date, checkWindow)
		if err != nil {
			serviceutil.Fatal("parse request", err)
		}

		buzzClient, err := buzz.NewClient(buzz.Options{
			Output: restyOutput("buzz"),
		}, tel())
		if err != nil {
			serviceutil.Fatal("init buzz client", err)
		}
		rooms, closeRooms, err := newRoomFetcher(checkCivicHall, false)
		if err != nil {
			serviceutil.Fatal("init civic hall fetcher", err)
		}
		defer closeRooms()
		studios, closeStudios, err := newStudioFetcher(checkCrea, checkAuthFile, false)
		if err != nil {
			serviceutil.Fatal("init crea fetcher", err)
		}
		defer closeStudios()

		agg, err := aggregator.New(aggregator.Options{
			Parallelism: checkParallelism,
			Adapters: map[availability.PayloadKind]aggregator.Adapter{
				availability.PayloadTable:  buzzClient,
				availability.PayloadRange:  civichall.NewAdapter(rooms),
				availability.PayloadPriced: crea.NewAdapter(studios),
			},
		}, tel())
		if err != nil {
			serviceutil.Fatal("init aggregator", err)
		}

		res, err := agg.Handle(cmd.Context(), req)
		if err != nil {
			serviceutil.Fatal("check availability", err)
		}

		if checkJSON {
			err = printJSON(res)
			if err != nil {
				serviceutil.Fatal("encode response", err)
			}
			return
		}

		fmt.Printf("%s(%s) %s\n\n", res.Date, res.DayOfWeek, res.Window)
		for _, record := range res.Results {
			printRecord(record)
		}
	},
}

package commands

import (
	"fmt"
	"os"
	"studiocheck/internal/scrapers/crea"
	"studiocheck/lib/serviceutil"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var authFile string

func init() {
	authInspectCmd.Flags().StringVarP(&authFile, "file", "f", crea.DefaultAuthFile, "Session state file (CREA_AUTH_JSON takes precedence).")
	authCmd.AddCommand(authInspectCmd)
	rootCmd.AddCommand(authCmd)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manages the CREA session state used by the browser strategy.",
}

func cookieExpiry(expires float64) string {
	if expires < 0 {
		return "session"
	}
	at := time.Unix(int64(expires), 0)
	if at.Before(time.Now()) {
		return fmt.Sprintf("%s (expired)", at.Format(time.DateTime))
	}
	return at.Format(time.DateTime)
}

var authInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Prints the cookies and origins of a session state.",
	Run: func(cmd *cobra.Command, args []string) {
		store := crea.NewAuthStore(crea.AuthOptions{
			JSON: os.Getenv("CREA_AUTH_JSON"),
			File: authFile,
		}, tel())
		err := store.Reload()
		if err != nil {
			serviceutil.Fatal("load session state", err)
		}
		state, _, err := store.State()
		if err != nil {
			serviceutil.Fatal("read session state", err)
		}

		fmt.Println("source:", store.Source())

		t := newTable()
		t.AppendHeader(table.Row{"Name", "Domain", "Path", "Expires", "HttpOnly", "Secure"})
		for _, c := range state.Cookies {
			t.AppendRow(table.Row{c.Name, c.Domain, c.Path, cookieExpiry(c.Expires), c.HTTPOnly, c.Secure})
		}
		t.Render()

		if len(state.Origins) == 0 {
			return
		}
		t = newTable()
		t.AppendHeader(table.Row{"Origin", "localStorage keys"})
		for _, o := range state.Origins {
			t.AppendRow(table.Row{o.Origin, len(o.LocalStorage)})
		}
		t.Render()
	},
}

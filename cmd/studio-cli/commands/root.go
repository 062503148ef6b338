package commands

import (
	"context"
	"fmt"
	"os"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/delegate"
	"studiocheck/lib/configutil"
	"studiocheck/lib/restyutil"
	libtelemetry "studiocheck/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose     bool
	delegateURL string
)

var rootCmd = &cobra.Command{
	Use:   "studio-cli",
	Short: "studio-cli checks rehearsal studio availability from the terminal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		libtelemetry.InitSlog(verbose)
		if delegateURL == "" {
			delegateURL = delegate.DefaultBaseURL
			configutil.OverrideString(&delegateURL, "DELEGATE_URL", "RENDER_API_URL")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs and dump every http exchange to .dev/resty.")
	rootCmd.PersistentFlags().StringVar(&delegateURL, "delegate", "", "Base url of the scraper service (defaults to DELEGATE_URL).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func tel() telemetry.API {
	return telemetry.SlogAPI{}
}

func restyOutput(component string) restyutil.InstrumentOutput {
	if !verbose {
		return nil
	}
	output, err := restyutil.NewFilesystemOutput(fmt.Sprintf(".dev/resty/%s", component))
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not create resty output:", err)
		return nil
	}
	return output
}

// Command screenctl exercises a running screening server from the terminal.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "screenctl",
		Short:         "Submit screenings, run reference scenarios and inspect stored records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "screening server base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "per-request timeout")

	root.AddCommand(newSubmitCmd(), newScenariosCmd(), newHelplinesCmd(), newShowCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error: "+err.Error()))
		os.Exit(1)
	}
}

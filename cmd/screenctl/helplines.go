package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHelplinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "helplines",
		Short: "List crisis helplines served by the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := newClient(baseURL, timeout).helplines(cmd.Context())
			if err != nil {
				return err
			}
			for _, h := range lines {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", bold(h.Name), green(h.Number), h.Desc)
			}
			return nil
		},
	}
}

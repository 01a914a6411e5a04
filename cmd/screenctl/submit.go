package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mindwell-screening/pkg"
)

func newSubmitCmd() *cobra.Command {
	var (
		summary    string
		riskScore  int
		validation string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one screening summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if summary == "" {
				return errors.New("--summary is required")
			}
			req := pkg.ScreeningRequest{Summary: summary, Validation: validation}
			if cmd.Flags().Changed("risk-score") {
				score := float64(riskScore)
				req.RiskScore = &score
			}
			c := newClient(baseURL, timeout)
			resp, err := c.submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "patient summary text")
	cmd.Flags().IntVar(&riskScore, "risk-score", 0, "preliminary agent score (selects second-opinion mode)")
	cmd.Flags().StringVar(&validation, "validation", "", "agent validation text sent with --risk-score")
	return cmd
}

func printResult(w io.Writer, resp *pkg.ScreeningResponse) {
	if resp.Result == nil {
		fmt.Fprintln(w, red("no result: "+resp.Error))
		return
	}
	r := resp.Result
	fmt.Fprintf(w, "%s %s\n", yellow("Risk Score:"), white(r.Score))
	fmt.Fprintf(w, "%s %s\n", yellow("Agent Voice (Validation):"), white(r.Validation))
	fmt.Fprintf(w, "%s %s\n", cyan("Internal Logic (Reasoning):"), white(r.Reasoning))
	if !r.Assessed {
		fmt.Fprintln(w, red("Assessment unavailable; fallback response returned"))
	}
	if r.RecordID != nil {
		fmt.Fprintf(w, "%s %s\n", cyan("Record:"), *r.RecordID)
	}
}

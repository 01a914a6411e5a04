package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mindwell-screening/pkg"
)

// scenario is a reference summary with the score band a well-behaved model
// should return for it.
type scenario struct {
	Title   string
	Summary string
	Min     int
	Max     int
}

var referenceScenarios = []scenario{
	{
		Title: "SMILING DEPRESSION (facts vs sentiment)",
		Summary: "Patient begins by stating 'I am doing fantastic, really great.' However, later admits to waking up " +
			"at 3AM every night, inability to eat for 4 days, and constant fatigue. Maintains they are 'happy' despite this.",
		Min: 6, Max: 9,
	},
	{
		Title: "DRUG SEEKING BEHAVIOR",
		Summary: "Patient is calm, articulate, and rational. States they have a 'panic disorder' and specifically requests " +
			"2mg Xanax bars because 'nothing else works'. Denies other symptoms. Focuses solely on obtaining the prescription.",
		Min: 3, Max: 6,
	},
	{
		Title: "CULTURAL SOMATIZATION",
		Summary: "Patient describes a 'burning fire in the liver' and 'too much heat in the head'. Says their soul is tired. " +
			"No specific medical history of liver disease. Used traditional herbal remedies without success.",
		Min: 4, Max: 7,
	},
	{
		Title: "THIRD PARTY REPORT",
		Summary: "Caller is worried about their brother. Says the brother has locked himself in his room for weeks and " +
			"isn't showering. Caller is anxious but safe.",
		Min: 0, Max: 3,
	},
	{
		Title: "PHILOSOPHICAL NIHILISM",
		Summary: "Patient engages in a long philosophical debate about the meaninglessness of existence. Cites Nietzsche " +
			"and Cioran. Says 'death is the only logical conclusion' but when asked about plans, says 'No, I'm just " +
			"exploring the concept intellectually.'",
		Min: 2, Max: 5,
	},
}

// evaluate returns the reasons resp fails sc; an empty slice is a pass.
func evaluate(sc scenario, resp *pkg.ScreeningResponse) []string {
	if resp == nil || resp.Result == nil {
		return []string{"no result in response"}
	}
	var failures []string
	r := resp.Result
	if !r.Assessed {
		failures = append(failures, "assessment unavailable: "+r.Reasoning)
	} else if r.Score < sc.Min || r.Score > sc.Max {
		failures = append(failures, fmt.Sprintf("score %d out of expected range [%d, %d]", r.Score, sc.Min, sc.Max))
	}
	if len(strings.TrimSpace(r.Validation)) < 5 {
		failures = append(failures, "validation text too short or empty")
	}
	return failures
}

type submitter interface {
	submit(ctx context.Context, req pkg.ScreeningRequest) (*pkg.ScreeningResponse, error)
}

// runScenarios submits each scenario in turn and reports PASS or FAIL. It
// returns the number of failed scenarios.
func runScenarios(ctx context.Context, w io.Writer, c submitter, scenarios []scenario) int {
	failed := 0
	rule := strings.Repeat("=", 60)
	for i, sc := range scenarios {
		fmt.Fprintf(w, "\n%s\n%s\n", cyan(rule), white(fmt.Sprintf("SCENARIO %d: %s", i+1, sc.Title)))

		resp, err := c.submit(ctx, pkg.ScreeningRequest{Summary: sc.Summary})
		if err != nil {
			fmt.Fprintln(w, red("[FAIL] "+err.Error()))
			failed++
			continue
		}
		printResult(w, resp)

		if reasons := evaluate(sc, resp); len(reasons) > 0 {
			for _, reason := range reasons {
				fmt.Fprintln(w, red("[FAIL] "+reason))
			}
			failed++
			continue
		}
		fmt.Fprintln(w, green("[PASS] TEST PASSED"))
	}
	return failed
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "Run the reference clinical scenarios and check score bands",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, bold("Running reference scenarios against "+baseURL))
			failed := runScenarios(cmd.Context(), out, newClient(baseURL, timeout), referenceScenarios)
			fmt.Fprintf(out, "\n%d/%d scenarios passed\n", len(referenceScenarios)-failed, len(referenceScenarios))
			if failed > 0 {
				return fmt.Errorf("%d scenario(s) failed", failed)
			}
			return nil
		},
	}
}

package core

import (
	"strconv"
	"strings"

	"mindwell-screening/pkg"
)

// BuildAssessmentPrompt renders the prompt for req. The output is fully
// determined by the request, so identical requests produce identical prompts.
func BuildAssessmentPrompt(req pkg.AssessmentRequest) string {
	var b strings.Builder

	b.WriteString(RoleInstruction)
	b.WriteString("\n\n")

	b.WriteString("PATIENT SUMMARY:\n\"\"\"\n")
	b.WriteString(req.Summary)
	b.WriteString("\n\"\"\"\n\n")

	if req.Mode() == pkg.ModeSecondOpinion {
		b.WriteString("PRELIMINARY RISK SCORE (from screening agent): ")
		b.WriteString(strconv.Itoa(*req.AgentRiskScore))
		b.WriteString("/10\n")
		if v := strings.TrimSpace(req.AgentValidation); v != "" {
			b.WriteString("AGENT VALIDATION: ")
			b.WriteString(v)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(SecondOpinionTask)
	} else {
		b.WriteString(FreshTask)
	}
	b.WriteString("\n\n")

	b.WriteString(ScoringRubric)
	b.WriteString("\n\n")
	b.WriteString(OutputContract)
	b.WriteString("\n")

	return b.String()
}

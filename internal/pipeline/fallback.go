package pipeline

import (
	"fmt"
	"strings"

	"github.com/casewright/petition-service/internal/domain"
)

// FallbackContent produces the placeholder document used when every
// generation attempt for a step has failed. It is deterministic, references
// the case it belongs to, and is clearly marked for manual completion so a
// reviewer cannot mistake it for drafted work product.
func FallbackContent(spec StepSpec, prep domain.PreparationData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", spec.Name)
	fmt.Fprintf(&b, "**Case:** %s (%s", prep.BeneficiaryName, prep.VisaCategory)
	if prep.FieldOfEndeavor != "" {
		fmt.Fprintf(&b, ", %s", prep.FieldOfEndeavor)
	}
	b.WriteString(")\n\n")

	b.WriteString("> **ACTION REQUIRED:** Automatic drafting of this document was not\n")
	b.WriteString("> possible. This placeholder preserves the document's position in the\n")
	b.WriteString("> petition package and must be completed manually before filing.\n\n")

	b.WriteString("## Intended Content\n\n")
	b.WriteString(stepInstructions[spec.Number])
	b.WriteString("\n\n")

	b.WriteString("## Preparation Notes\n\n")
	fmt.Fprintf(&b, "- Prepare this document for %s's %s petition.\n", prep.BeneficiaryName, prep.VisaCategory)
	if len(spec.DependsOn) > 0 {
		b.WriteString("- Consult the following generated documents before drafting:\n")
		for _, dep := range spec.DependsOn {
			if step, err := StepByNumber(dep.Number); err == nil {
				fmt.Fprintf(&b, "  - Document %d: %s\n", step.Number, step.Name)
			}
		}
	}
	if len(prep.AnalyzedURLs) > 0 {
		fmt.Fprintf(&b, "- %d supporting web sources were collected for this case.\n", len(prep.AnalyzedURLs))
	}

	return b.String()
}

package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/casewright/petition-service/internal/domain"
)

// systemPrompt is shared by every generation step.
const systemPrompt = "You are a senior U.S. immigration attorney specializing in " +
	"extraordinary-ability petitions. You draft precise, well-structured petition " +
	"documents grounded strictly in the evidence provided. Cite specific evidence " +
	"wherever possible and never invent facts."

// urlDigestBudget caps the per-URL excerpt spliced into prompts.
const urlDigestBudget = 2000

// stepInstructions holds the task portion of each step's prompt.
var stepInstructions = map[int]string{
	1: "Write a comprehensive case analysis for the beneficiary. Assess the strength of " +
		"the case against each applicable regulatory criterion, identify the strongest " +
		"evidence, and give an overall assessment with a recommended petition strategy.",
	2: "Write a publication and citation analysis. Evaluate the beneficiary's scholarly " +
		"output, citation record, venue quality, and field impact. Build on the case " +
		"analysis excerpt provided.",
	3: "Write a reference summary of the supporting web sources. For each source, state " +
		"what it documents, which criterion it supports, and how it should be cited in " +
		"the petition.",
	4: "Write the legal brief for the petition. Argue each applicable criterion in turn, " +
		"apply the governing legal standard, and marshal the evidence identified in the " +
		"analysis excerpts provided.",
	5: "Write an evidence gap analysis. Identify weak or missing evidence per criterion, " +
		"rank the gaps by risk of an RFE, and recommend concrete documents to obtain.",
	6: "Write the USCIS cover letter for the petition package. Summarize the case, list " +
		"the enclosed documents, and state the requested classification.",
	7: "Write the visa application checklist: every form, fee, and supporting document " +
		"required for filing, with the beneficiary-specific items called out.",
	8: "Write the exhibit assembly guide. Define the exhibit order, labeling scheme, and " +
		"tabbing for the petition package, mapping each exhibit to the brief's arguments.",
}

// BuildPrompt assembles the user prompt for a step from the prepared case
// context and the truncated outputs of its dependencies.
func BuildPrompt(spec StepSpec, prep domain.PreparationData, depExcerpts map[int]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Task: %s\n\n%s\n\n", spec.Name, stepInstructions[spec.Number])

	fmt.Fprintf(&b, "# Case\nBeneficiary: %s\nVisa classification: %s\nField of endeavor: %s\n\n",
		prep.BeneficiaryName, prep.VisaCategory, prep.FieldOfEndeavor)

	if prep.KnowledgeBase != "" {
		b.WriteString("# Legal Reference Material\n")
		b.WriteString(prep.KnowledgeBase)
		b.WriteString("\n\n")
	}

	if prep.EvidenceText != "" {
		b.WriteString("# Submitted Evidence\n")
		b.WriteString(prep.EvidenceText)
		b.WriteString("\n\n")
	}

	if digest := prep.URLDigest(urlDigestBudget); digest != "" {
		b.WriteString("# Web Sources\n")
		b.WriteString(digest)
		b.WriteString("\n\n")
	}

	if len(depExcerpts) > 0 {
		b.WriteString("# Excerpts From Earlier Documents\n")
		numbers := make([]int, 0, len(depExcerpts))
		for n := range depExcerpts {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)
		for _, n := range numbers {
			step, err := StepByNumber(n)
			name := fmt.Sprintf("Document %d", n)
			if err == nil {
				name = step.Name
			}
			fmt.Fprintf(&b, "## %s\n%s\n\n", name, depExcerpts[n])
		}
	}

	return strings.TrimSpace(b.String())
}

// SystemPrompt returns the shared system instruction.
func SystemPrompt() string {
	return systemPrompt
}

package domain

import "strings"

// UploadedFile is an evidence file submitted with a case. Text extraction
// happens upstream; only the extracted text crosses this service.
type UploadedFile struct {
	Name          string `json:"name"`
	ExtractedText string `json:"extracted_text"`
}

// AnalyzedURL records the outcome of fetching one supporting URL. Failed
// fetches are kept so downstream prompts can note unavailable sources.
type AnalyzedURL struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PreparationData is the assembled context shared by every document
// generation step. It is produced once per case, before generation begins,
// and is immutable afterwards. All fields are exported because the value
// crosses a workflow serialization boundary.
type PreparationData struct {
	CaseID          string        `json:"case_id"`
	BeneficiaryName string        `json:"beneficiary_name"`
	VisaCategory    VisaCategory  `json:"visa_category"`
	FieldOfEndeavor string        `json:"field_of_endeavor"`
	KnowledgeBase   string        `json:"knowledge_base"`
	EvidenceText    string        `json:"evidence_text"`
	AnalyzedURLs    []AnalyzedURL `json:"analyzed_urls"`
}

// URLDigest renders the analyzed URLs as a prompt section, skipping failures.
func (p PreparationData) URLDigest(maxPerURL int) string {
	var b strings.Builder
	for _, u := range p.AnalyzedURLs {
		if !u.Success {
			continue
		}
		content := u.Content
		if maxPerURL > 0 && len(content) > maxPerURL {
			content = content[:maxPerURL]
		}
		b.WriteString("Source: ")
		b.WriteString(u.URL)
		if u.Title != "" {
			b.WriteString(" (")
			b.WriteString(u.Title)
			b.WriteString(")")
		}
		b.WriteString("\n")
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// Package knowledge loads the curated visa-category reference corpus used to
// ground document generation prompts.
package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/casewright/petition-service/internal/domain"
)

// defaultMaxChars caps the assembled corpus text contributed to a prompt.
const defaultMaxChars = 50000

// categoryFiles maps each visa category to its ordered reference files.
// Ordering matters: earlier files survive truncation.
var categoryFiles = map[domain.VisaCategory][]string{
	domain.VisaCategoryO1A: {
		"o1a-criteria.md",
		"o1a-evidence-standards.md",
		"uscis-policy-extraordinary-ability.md",
	},
	domain.VisaCategoryO1B: {
		"o1b-criteria.md",
		"o1b-evidence-standards.md",
		"uscis-policy-arts.md",
	},
	domain.VisaCategoryP1A: {
		"p1a-criteria.md",
		"p1a-evidence-standards.md",
	},
	domain.VisaCategoryEB1A: {
		"eb1a-criteria.md",
		"eb1a-final-merits.md",
		"uscis-policy-extraordinary-ability.md",
	},
	domain.VisaCategoryEB2NIW: {
		"eb2-niw-criteria.md",
		"eb2-niw-dhanasar.md",
	},
}

// generalFiles are included for every category, after the category files.
var generalFiles = []string{
	"petition-structure.md",
	"rfe-avoidance.md",
}

// Corpus loads reference material for a visa category from a directory of
// curated files.
type Corpus struct {
	dir      string
	maxChars int
	logger   zerolog.Logger
}

// Config holds corpus configuration.
type Config struct {
	// Dir is the directory holding the reference files.
	Dir string
	// MaxChars caps the assembled corpus text. Default: 50000.
	MaxChars int
}

// NewCorpus creates a Corpus reading from cfg.Dir.
func NewCorpus(cfg Config, logger zerolog.Logger) *Corpus {
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &Corpus{
		dir:      cfg.Dir,
		maxChars: maxChars,
		logger:   logger.With().Str("component", "knowledge").Logger(),
	}
}

// Files returns the ordered file list for a category. Unknown categories get
// only the general files.
func Files(category domain.VisaCategory) []string {
	files := make([]string, 0, len(categoryFiles[category])+len(generalFiles))
	files = append(files, categoryFiles[category]...)
	files = append(files, generalFiles...)
	return files
}

// Load assembles the reference text for a category. Missing or unreadable
// files are logged and skipped; an empty corpus is a degraded prompt, not an
// error. The result is capped at MaxChars, truncating the last file.
func (c *Corpus) Load(category domain.VisaCategory) string {
	if !category.IsKnown() {
		c.logger.Warn().Str("visa_category", string(category)).Msg("no curated corpus for category")
	}

	var b strings.Builder
	for _, name := range Files(category) {
		content, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			c.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable corpus file")
			continue
		}

		remaining := c.maxChars - b.Len()
		if remaining <= 0 {
			break
		}

		section := "## " + name + "\n\n" + strings.TrimSpace(string(content)) + "\n\n"
		b.WriteString(truncate(section, remaining))
	}

	return strings.TrimSpace(b.String())
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

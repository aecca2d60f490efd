// Package research discovers supplementary evidence URLs for a beneficiary
// by asking the text generation provider for verifiable public sources. The
// discovered set supplements caller-submitted URLs; discovery failures only
// reduce the available context and are never fatal.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/llm"
)

const (
	defaultMaxURLs = 15

	discoveryMaxTokens   = 2048
	discoveryTemperature = 0.2

	discoverySystemPrompt = "You are a research assistant helping find verifiable public " +
		"evidence for U.S. visa petitions. Return ONLY a valid JSON array of real URLs."
)

// jsonArrayPattern extracts the first JSON array from a model response that
// may wrap it in prose or a code fence.
var jsonArrayPattern = regexp.MustCompile(`\[[\s\S]*\]`)

// urlPattern is the manual-extraction fallback when the response is not
// parseable JSON.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Config holds discoverer settings.
type Config struct {
	// MaxURLs caps the number of URLs returned per lookup. Default: 15.
	MaxURLs int
}

// Discoverer finds evidence URLs about a beneficiary via the generation provider.
type Discoverer struct {
	generator llm.TextGenerator
	maxURLs   int
	logger    zerolog.Logger
}

// NewDiscoverer creates a Discoverer backed by the given text generator.
func NewDiscoverer(generator llm.TextGenerator, cfg Config, logger zerolog.Logger) *Discoverer {
	maxURLs := cfg.MaxURLs
	if maxURLs <= 0 {
		maxURLs = defaultMaxURLs
	}
	return &Discoverer{
		generator: generator,
		maxURLs:   maxURLs,
		logger:    logger.With().Str("component", "research").Logger(),
	}
}

// DiscoverURLs asks the provider for public sources about the beneficiary.
// It returns an empty slice on any failure; discovery is strictly additive.
func (d *Discoverer) DiscoverURLs(ctx context.Context, beneficiaryName, fieldOfEndeavor string, category domain.VisaCategory) []string {
	if d.generator == nil || beneficiaryName == "" {
		return nil
	}

	result, err := d.generator.Generate(ctx, llm.GenerationRequest{
		Prompt:       buildDiscoveryPrompt(beneficiaryName, fieldOfEndeavor, category, d.maxURLs),
		SystemPrompt: discoverySystemPrompt,
		MaxTokens:    discoveryMaxTokens,
		Temperature:  discoveryTemperature,
	})
	if err != nil {
		d.logger.Warn().Err(err).Str("beneficiary", beneficiaryName).Msg("url discovery failed")
		return nil
	}

	urls := parseDiscoveredURLs(result.Text, d.maxURLs)
	d.logger.Info().
		Str("beneficiary", beneficiaryName).
		Int("urls", len(urls)).
		Msg("url discovery completed")
	return urls
}

func buildDiscoveryPrompt(name, field string, category domain.VisaCategory, maxURLs int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find up to %d verifiable URLs with evidence about %s", maxURLs, name)
	if field != "" {
		fmt.Fprintf(&b, ", working in %s", field)
	}
	b.WriteString(".\n\nFocus on:\n")
	b.WriteString("1. Official websites and organization profiles\n")
	b.WriteString("2. News articles from major publications\n")
	b.WriteString("3. Industry publications and trade journals\n")
	b.WriteString("4. Professional databases and rankings\n")
	b.WriteString("5. Award announcements and recognition\n")
	b.WriteString("6. Published interviews, features, or performance records\n")
	if category != "" {
		fmt.Fprintf(&b, "\nPrioritize sources relevant to a %s petition: official records, media coverage from reputable sources, professional achievements, and industry recognition.\n", category)
	}
	b.WriteString("\nReturn ONLY a JSON array of objects with this exact format:\n")
	b.WriteString(`[{"url": "full URL", "title": "page title", "source": "publication name"}]`)
	b.WriteString("\n\nBe specific with real, verifiable URLs.")
	return b.String()
}

// parseDiscoveredURLs extracts URLs from a model response, preferring the
// structured JSON array and falling back to raw URL extraction.
func parseDiscoveredURLs(text string, maxURLs int) []string {
	var urls []string

	if match := jsonArrayPattern.FindString(text); match != "" {
		var items []struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal([]byte(match), &items); err == nil {
			for _, item := range items {
				urls = append(urls, item.URL)
			}
		}
	}

	if len(urls) == 0 {
		urls = urlPattern.FindAllString(text, -1)
		for i, u := range urls {
			urls[i] = strings.TrimRight(u, `.,)']"`)
		}
	}

	valid := make([]string, 0, len(urls))
	for _, raw := range urls {
		if len(valid) >= maxURLs {
			break
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		valid = append(valid, raw)
	}
	return valid
}

package research

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/llm"
)

type fakeGenerator struct {
	text    string
	err     error
	lastReq llm.GenerationRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.GenerationRequest) (*llm.GenerationResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerationResult{Text: f.text, Provider: "fake", Model: "fake-model"}, nil
}

func (f *fakeGenerator) Provider() string     { return "fake" }
func (f *fakeGenerator) Model() string        { return "fake-model" }
func (f *fakeGenerator) MaxOutputTokens() int { return 16384 }

func TestDiscoverURLs_ParsesJSONArray(t *testing.T) {
	gen := &fakeGenerator{text: `Here are the sources:
[
  {"url": "https://example.com/profile", "title": "Profile", "source": "Example"},
  {"url": "https://news.example.org/award", "title": "Award", "source": "News"}
]`}
	d := NewDiscoverer(gen, Config{}, zerolog.Nop())

	urls := d.DiscoverURLs(context.Background(), "Dr. Maria Santos", "computational biology", domain.VisaCategoryEB1A)

	require.Len(t, urls, 2)
	assert.Equal(t, "https://example.com/profile", urls[0])
	assert.Equal(t, "https://news.example.org/award", urls[1])

	assert.Contains(t, gen.lastReq.Prompt, "Dr. Maria Santos")
	assert.Contains(t, gen.lastReq.Prompt, "computational biology")
	assert.Contains(t, gen.lastReq.Prompt, "EB-1A")
	assert.Equal(t, discoveryMaxTokens, gen.lastReq.MaxTokens)
}

func TestDiscoverURLs_FallsBackToRawExtraction(t *testing.T) {
	gen := &fakeGenerator{text: `I could not produce JSON, but see
https://example.com/coverage and https://example.org/ranking.`}
	d := NewDiscoverer(gen, Config{}, zerolog.Nop())

	urls := d.DiscoverURLs(context.Background(), "Dr. Maria Santos", "", domain.VisaCategoryEB1A)

	require.Len(t, urls, 2)
	assert.Equal(t, "https://example.com/coverage", urls[0])
	assert.Equal(t, "https://example.org/ranking", urls[1])
}

func TestDiscoverURLs_DropsInvalidURLs(t *testing.T) {
	gen := &fakeGenerator{text: `[
  {"url": "https://example.com/ok"},
  {"url": "ftp://example.com/nope"},
  {"url": "not a url"}
]`}
	d := NewDiscoverer(gen, Config{}, zerolog.Nop())

	urls := d.DiscoverURLs(context.Background(), "Dr. Maria Santos", "", "")

	require.Len(t, urls, 1)
	assert.Equal(t, "https://example.com/ok", urls[0])
}

func TestDiscoverURLs_CapsAtMaxURLs(t *testing.T) {
	gen := &fakeGenerator{text: `[
  {"url": "https://example.com/1"},
  {"url": "https://example.com/2"},
  {"url": "https://example.com/3"}
]`}
	d := NewDiscoverer(gen, Config{MaxURLs: 2}, zerolog.Nop())

	urls := d.DiscoverURLs(context.Background(), "Dr. Maria Santos", "", "")
	assert.Len(t, urls, 2)
}

func TestDiscoverURLs_GeneratorErrorDegrades(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider unavailable")}
	d := NewDiscoverer(gen, Config{}, zerolog.Nop())

	urls := d.DiscoverURLs(context.Background(), "Dr. Maria Santos", "", domain.VisaCategoryEB1A)
	assert.Empty(t, urls)
}

func TestDiscoverURLs_MissingNameSkipsLookup(t *testing.T) {
	gen := &fakeGenerator{text: `[{"url": "https://example.com/ok"}]`}
	d := NewDiscoverer(gen, Config{}, zerolog.Nop())

	urls := d.DiscoverURLs(context.Background(), "", "", "")
	assert.Empty(t, urls)
	assert.Empty(t, gen.lastReq.Prompt, "generator should not be called without a beneficiary name")
}

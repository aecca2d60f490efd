// Package fetcher retrieves supporting evidence URLs for a petition case and
// converts them to plain text for prompt assembly.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/casewright/petition-service/internal/domain"
)

// Sentinel errors for URL fetch operations.
var (
	// ErrFetchFailed is returned when a fetch fails due to network or HTTP errors.
	ErrFetchFailed = errors.New("fetcher: fetch failed")
	// ErrSSRF is returned when the URL resolves to a private/internal network address.
	ErrSSRF = errors.New("fetcher: request to private network denied")
)

// Defaults for the fetcher configuration.
const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 1 << 20 // 1MiB of raw HTML per page
	defaultMaxChars     = 10000   // stored plain-text budget per URL
	defaultUserAgent    = "Mozilla/5.0 (compatible; CasewrightPetitionBot/1.0)"
)

// Config holds fetcher configuration.
type Config struct {
	// Timeout is the per-request timeout. Default: 30 seconds.
	Timeout time.Duration
	// MaxBodyBytes caps how much of a response body is read. Default: 1MiB.
	MaxBodyBytes int64
	// MaxChars caps the stored plain text per URL. Default: 10000.
	MaxChars int
	// RatePerSecond is the sustained outbound request rate. Default: 2.
	RatePerSecond float64
	// Burst is the rate limiter burst size. Default: 4.
	Burst int
	// UserAgent is the User-Agent header.
	UserAgent string
	// AllowPrivateNetworks disables SSRF private-IP checks. This MUST only be
	// set to true in test environments. Production code must never set this.
	AllowPrivateNetworks bool
}

// Fetcher retrieves URLs and reduces them to plain text excerpts.
type Fetcher struct {
	client               *http.Client
	limiter              *RateLimiter
	maxBodyBytes         int64
	maxChars             int
	userAgent            string
	allowPrivateNetworks bool // For testing only; never enable in production.
	logger               zerolog.Logger
}

// New creates a Fetcher with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = defaultMaxChars
	}
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst == 0 {
		cfg.Burst = 4
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	f := &Fetcher{
		limiter:              NewRateLimiter(cfg.RatePerSecond, cfg.Burst),
		maxBodyBytes:         cfg.MaxBodyBytes,
		maxChars:             cfg.MaxChars,
		userAgent:            cfg.UserAgent,
		allowPrivateNetworks: cfg.AllowPrivateNetworks,
		logger:               logger.With().Str("component", "fetcher").Logger(),
	}

	f.client = &http.Client{
		Timeout: cfg.Timeout,
		// Validate each redirect URL against private IP checks to prevent
		// SSRF via open redirects that land on internal network addresses.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("%w: too many redirects", ErrSSRF)
			}
			if !f.allowPrivateNetworks {
				if err := validateURLNotPrivate(req.URL.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	return f
}

// FetchAll fetches every URL in order, one entry per input URL. Failures are
// recorded in the result, never returned: a dead link must not sink the case.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []domain.AnalyzedURL {
	results := make([]domain.AnalyzedURL, 0, len(urls))
	for _, u := range urls {
		results = append(results, f.Fetch(ctx, u))
	}
	return results
}

// Fetch retrieves one URL and reduces it to a plain text excerpt.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) domain.AnalyzedURL {
	result := domain.AnalyzedURL{URL: rawURL}

	if err := f.limiter.Wait(ctx); err != nil {
		result.Error = err.Error()
		return result
	}

	title, text, err := f.fetch(ctx, rawURL)
	if err != nil {
		f.logger.Warn().Err(err).Str("url", rawURL).Msg("url fetch failed")
		result.Error = err.Error()
		return result
	}

	result.Title = title
	result.Content = text
	result.Success = true
	return result
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (title, text string, err error) {
	if !f.allowPrivateNetworks {
		if err := validateURLNotPrivate(rawURL); err != nil {
			return "", "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid URL: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("%w: HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return "", "", fmt.Errorf("%w: reading body: %w", ErrFetchFailed, err)
	}

	html := string(body)
	title = extractTitle(html)
	text = StripHTML(html)
	return title, truncate(text, f.maxChars), nil
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

var (
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptRe  = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

// extractTitle returns the contents of the first <title> element, if any.
func extractTitle(html string) string {
	m := titleRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(tagRe.ReplaceAllString(m[1], ""))
}

// StripHTML reduces an HTML document to whitespace-normalized plain text.
// Script, style and noscript bodies are dropped entirely.
func StripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, "\n")
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(text)
	text = spaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	text = strings.Join(kept, "\n")
	return newlineRe.ReplaceAllString(text, "\n\n")
}

// NormalizeURL canonicalizes a URL for deduplication: lowercased scheme and
// host, no fragment, no trailing slash. Invalid URLs are returned trimmed.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return trimmed
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return parsed.String()
}

// DedupURLs merges URL lists preserving first-seen order, dropping blanks and
// normalized duplicates.
func DedupURLs(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, u := range list {
			norm := NormalizeURL(u)
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

// isPrivateIP returns true if the IP address is in a private, loopback, or
// otherwise non-routable range. Covers both IPv4 and IPv6 private ranges.
func isPrivateIP(ip net.IP) bool {
	privateRanges := []struct{ start, end net.IP }{
		{net.ParseIP("10.0.0.0"), net.ParseIP("10.255.255.255")},
		{net.ParseIP("172.16.0.0"), net.ParseIP("172.31.255.255")},
		{net.ParseIP("192.168.0.0"), net.ParseIP("192.168.255.255")},
		{net.ParseIP("169.254.0.0"), net.ParseIP("169.254.255.255")},
		// IPv6 Unique Local Addresses (fc00::/7).
		{net.ParseIP("fc00::"), net.ParseIP("fdff:ffff:ffff:ffff:ffff:ffff:ffff:ffff")},
		// IPv6 link-local (fe80::/10).
		{net.ParseIP("fe80::"), net.ParseIP("febf:ffff:ffff:ffff:ffff:ffff:ffff:ffff")},
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	for _, r := range privateRanges {
		if bytesInRange(ip.To16(), r.start.To16(), r.end.To16()) {
			return true
		}
	}
	return false
}

func bytesInRange(ip, lo, hi []byte) bool {
	for i := range ip {
		if ip[i] < lo[i] {
			return false
		}
		if ip[i] > hi[i] {
			return false
		}
	}
	return true
}

// validateURLNotPrivate resolves the hostname and rejects private IPs.
func validateURLNotPrivate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSSRF, err)
	}

	// Reject non-HTTP(S) schemes to prevent file://, gopher://, etc.
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		// allowed
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrSSRF, parsed.Scheme)
	}

	host := parsed.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %w", ErrFetchFailed, host, err)
	}
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("%w: %s resolves to private address %s", ErrSSRF, host, ipStr)
		}
	}
	return nil
}

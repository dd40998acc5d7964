// Package sitecontext extracts readable text from a company website to ground prompts.
package sitecontext

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.ContextFetcher = (*Fetcher)(nil)

type Options struct {
	Timeout  time.Duration
	MaxBytes int64 // body read limit
	MaxChars int   // extracted text limit
}

type Fetcher struct {
	client *http.Client
	opts   Options
	log    *zerolog.Logger
}

func NewFetcher(opts Options, logger *zerolog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 2 << 20
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 4000
	}
	l := logger.With().Str("component", "SiteContext").Logger()
	return &Fetcher{client: &http.Client{Timeout: opts.Timeout}, opts: opts, log: &l}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("unsupported website url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "content-studio/1.0 (+context fetch)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch website: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch website: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); mt != "text/html" && mt != "application/xhtml+xml" {
			return "", fmt.Errorf("fetch website: unsupported content type %q", mt)
		}
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, f.opts.MaxBytes))
	if err != nil {
		return "", fmt.Errorf("parse website: %w", err)
	}
	text := Extract(doc, f.opts.MaxChars)
	f.log.Debug().Str("host", u.Host).Int("chars", len(text)).Dur("took", time.Since(start)).Msg("website context fetched")
	if text == "" {
		return "", fmt.Errorf("website %s has no readable text", u.Host)
	}
	return text, nil
}

var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true,
	"iframe": true, "template": true, "nav": true, "footer": true, "form": true,
}

// Extract returns "Title: ...", "Description: ..." and the visible body text,
// whitespace collapsed and cut at maxChars runes.
func Extract(doc *html.Node, maxChars int) string {
	var title, desc string
	var body []string

	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil {
					title = collapse(n.FirstChild.Data)
				}
				return
			case "meta":
				if desc == "" && strings.EqualFold(attr(n, "name"), "description") {
					desc = collapse(attr(n, "content"))
				}
				return
			case "body":
				inBody = true
			}
			if skipped[n.Data] {
				return
			}
		}
		if n.Type == html.TextNode && inBody {
			if t := collapse(n.Data); t != "" {
				body = append(body, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(doc, false)

	var b strings.Builder
	if title != "" {
		b.WriteString("Title: " + title + "\n")
	}
	if desc != "" {
		b.WriteString("Description: " + desc + "\n")
	}
	b.WriteString(strings.Join(body, " "))

	out := []rune(strings.TrimSpace(b.String()))
	if maxChars > 0 && len(out) > maxChars {
		out = out[:maxChars]
	}
	return strings.TrimSpace(string(out))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

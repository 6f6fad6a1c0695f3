package avalanche

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/net/html"

	"github.com/skialp/skialp-backend/internal/upstream"
)

// The live bulletin path searches the web for the current avalanche
// bulletin, scrapes its text, and has a language model summarize risk
// level, snow conditions, and safety recommendations. It is gated behind
// AVALANCHE_LIVE_BULLETINS and is not part of the guaranteed contract.

const (
	expertPersona = "You are an avalanche risk expert."

	searchTimeout = 10 * time.Second
	scrapeTimeout = 15 * time.Second
)

// TextCompleter is the slice of the language-model client the live path
// needs.
type TextCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// LiveResolver upgrades the static lookup: when a current bulletin can be
// found, scraped, and summarized, the summary replaces the plain URL.
// Every failure falls back to the static table.
type LiveResolver struct {
	static    StaticResolver
	searchURL string
	searchKey string
	completer TextCompleter

	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

func NewLiveResolver(client *http.Client, searchKey, searchURL string, completer TextCompleter) *LiveResolver {
	if searchURL == "" {
		searchURL = "https://serpapi.com/search"
	}
	return &LiveResolver{
		searchURL:  searchURL,
		searchKey:  searchKey,
		completer:  completer,
		httpClient: client,
		circuit:    upstream.NewBreaker("bulletin-search"),
	}
}

func (r *LiveResolver) Resolve(ctx context.Context, country, location string) *string {
	bulletinURL, err := r.findBulletin(ctx, location)
	if err != nil || bulletinURL == "" {
		log.Printf("avalanche: bulletin search failed for %q, falling back to static source: %v", location, err)
		return r.static.Resolve(ctx, country, location)
	}

	text, err := r.scrapeBulletin(ctx, bulletinURL)
	if err != nil {
		log.Printf("avalanche: scrape failed for %s: %v", bulletinURL, err)
		return r.static.Resolve(ctx, country, location)
	}

	prompt := fmt.Sprintf(
		"Analyze the following avalanche bulletin:\n\n%s\n\nSummarize the avalanche risk level, snow conditions, and safety recommendations.",
		text,
	)
	summary, err := r.completer.Complete(ctx, expertPersona, prompt)
	if err != nil || strings.TrimSpace(summary) == "" {
		log.Printf("avalanche: bulletin summary failed for %s: %v", bulletinURL, err)
		return r.static.Resolve(ctx, country, location)
	}
	return &summary
}

// findBulletin asks the search engine for the most recent bulletin page and
// takes the first organic result.
func (r *LiveResolver) findBulletin(ctx context.Context, location string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("engine", "google")
		values.Set("q", fmt.Sprintf("%s avalanche bulletin", location))
		values.Set("api_key", r.searchKey)
		return http.NewRequest(http.MethodGet, r.searchURL+"?"+values.Encode(), nil)
	}

	resp, err := upstream.Do(ctx, r.httpClient, r.circuit, buildRequest)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		OrganicResults []struct {
			Link string `json:"link"`
		} `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode search results: %w", err)
	}
	if len(payload.OrganicResults) == 0 {
		return "", fmt.Errorf("no search results for %q", location)
	}
	return payload.OrganicResults[0].Link, nil
}

// scrapeBulletin fetches the page and extracts its visible text.
func (r *LiveResolver) scrapeBulletin(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, scrapeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bulletin page returned %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse bulletin page: %w", err)
	}

	text := ExtractText(doc)
	if text == "" {
		return "", fmt.Errorf("no bulletin text found at %s", pageURL)
	}
	return text, nil
}

// ExtractText walks the parsed document collecting visible text, skipping
// script and style subtrees.
func ExtractText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

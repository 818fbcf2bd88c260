// Package lodestone scrapes the public Lodestone character pages. There is no
// official API; the bio lives in a known block of the profile HTML.
package lodestone

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const defaultBaseURL = "https://eu.finalfantasyxiv.com"

var (
	reSelfIntroduction = regexp.MustCompile(`(?s)<div class="character__selfintroduction">(.*?)</div>`)
	reTags             = regexp.MustCompile(`<[^>]+>`)
)

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CharacterBio fetches a character page and returns the self-introduction
// text. An existing character with an empty bio returns "".
func (c *Client) CharacterBio(ctx context.Context, lodestoneID string) (string, error) {
	url := fmt.Sprintf("%s/lodestone/character/%s/", c.baseURL, lodestoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	// the Lodestone serves a bot-check page to clients without a UA
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; excelbot)")

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("lodestone character %s not found", lodestoneID)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lodestone returned status %d for character %s", res.StatusCode, lodestoneID)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return extractBio(string(body)), nil
}

func extractBio(page string) string {
	m := reSelfIntroduction.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	text := strings.ReplaceAll(m[1], "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = reTags.ReplaceAllString(text, "")
	return strings.TrimSpace(html.UnescapeString(text))
}

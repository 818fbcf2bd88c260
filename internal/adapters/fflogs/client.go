package fflogs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultRetryAfter  = 60 * time.Second
)

// Client executes GraphQL queries against the FFLogs client API with a shared
// retry budget per call: 429s honour Retry-After, 401s invalidate the cached
// token, transient faults back off exponentially. GraphQL-level errors in a
// 200 response are terminal.
type Client struct {
	apiURL      string
	tokens      *TokenStore
	http        *http.Client
	maxAttempts int
	sleep       func(time.Duration)
}

func New(apiURL string, tokens *TokenStore, opts ...Option) *Client {
	c := &Client{
		apiURL:      apiURL,
		tokens:      tokens,
		http:        &http.Client{Timeout: 30 * time.Second},
		maxAttempts: defaultMaxAttempts,
		sleep:       func(d time.Duration) { time.Sleep(d) },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.attempt(ctx, query, variables, out)
		if err == nil {
			return nil
		}

		var qe *QueryError
		if errors.As(err, &qe) {
			return err
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}

		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests:
			wait := apiErr.retryAfter
			if wait <= 0 {
				wait = defaultRetryAfter
			}
			log.Printf("fflogs: rate limited, retrying in %s (attempt %d/%d)", wait, attempt, c.maxAttempts)
			c.sleep(wait)

		case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
			log.Printf("fflogs: 401, refreshing token (attempt %d/%d)", attempt, c.maxAttempts)
			c.tokens.Invalidate()

		default:
			wait := time.Duration(1<<(attempt-1)) * time.Second
			log.Printf("fflogs: query failed, retrying in %s (attempt %d/%d): %v", wait, attempt, c.maxAttempts, err)
			c.sleep(wait)
		}
	}

	return fmt.Errorf("fflogs query failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, query string, variables map[string]any, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fflogs http: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return &APIError{Status: res.StatusCode, Body: "rate limited", retryAfter: retryAfter(res)}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var gqlRes graphqlResponse
	if err := json.NewDecoder(res.Body).Decode(&gqlRes); err != nil {
		return fmt.Errorf("fflogs decode: %w", err)
	}
	if len(gqlRes.Errors) > 0 {
		msgs := make([]string, 0, len(gqlRes.Errors))
		for _, e := range gqlRes.Errors {
			msgs = append(msgs, e.Message)
		}
		return &QueryError{Messages: msgs}
	}
	if gqlRes.Data == nil {
		return fmt.Errorf("fflogs response contained no data")
	}
	return json.Unmarshal(gqlRes.Data, out)
}

func retryAfter(res *http.Response) time.Duration {
	if ra := res.Header.Get("Retry-After"); ra != "" {
		if sec, err := strconv.Atoi(ra); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}
	return defaultRetryAfter
}

const worldDataQuery = `
query FightCatalog {
  worldData {
    expansions {
      id
      name
      zones {
        id
        name
        frozen
        encounters { id name }
        difficulties { id name }
      }
    }
  }
}`

// WorldData fetches the full expansion/zone/encounter/difficulty tree.
func (c *Client) WorldData(ctx context.Context) (*WorldData, error) {
	var out WorldData
	if err := c.execute(ctx, worldDataQuery, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

const zoneRankingsQuery = `
query CharacterClears($lodestoneID: Int!, $zoneID: Int!, $difficulty: Int!) {
  characterData {
    character(lodestoneID: $lodestoneID) {
      id
      name
      zoneRankings(zoneID: $zoneID, difficulty: $difficulty, metric: rdps)
    }
  }
}`

// CharacterZoneRankings fetches a character's per-encounter clear data for one
// zone. Returns nil when FFLogs does not know the character.
func (c *Client) CharacterZoneRankings(ctx context.Context, lodestoneID int64, zoneID, difficultyID int) (*ZoneRankings, error) {
	vars := map[string]any{
		"lodestoneID": lodestoneID,
		"zoneID":      zoneID,
		"difficulty":  difficultyID,
	}
	var out characterData
	if err := c.execute(ctx, zoneRankingsQuery, vars, &out); err != nil {
		return nil, err
	}
	ch := out.CharacterData.Character
	if ch == nil || len(ch.ZoneRankings) == 0 {
		return nil, nil
	}
	var zr ZoneRankings
	if err := json.Unmarshal(ch.ZoneRankings, &zr); err != nil {
		// zoneRankings is a JSON scalar; a shape we don't recognise means no usable data
		return nil, nil
	}
	return &zr, nil
}

const rateLimitQuery = `
query {
  rateLimitData {
    limitPerHour
    pointsSpentThisHour
    pointsResetIn
  }
}`

func (c *Client) RateLimit(ctx context.Context) (*RateLimitData, error) {
	var out RateLimitData
	if err := c.execute(ctx, rateLimitQuery, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

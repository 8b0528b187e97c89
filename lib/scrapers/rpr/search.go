package rpr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SearchResult is the autocomplete response, either decoded
// (Structured non-nil) or the raw body when the portal answered with
// something that isn't json. A raw result is degraded, not an error.
type SearchResult struct {
	Structured any
	Raw        string
}

func (r SearchResult) IsStructured() bool {
	return r.Structured != nil
}

// SearchAutocomplete resolves a free-text address query against the
// portal's autocomplete api using the logged-in session's cookies.
// Only transport failures and error statuses are errors; a body that
// fails to decode falls back to a raw result.
func (c *Client) SearchAutocomplete(ctx context.Context, query string) (SearchResult, error) {
	ctx, span := tracer.Start(ctx, "client:SearchAutocomplete")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	if !c.loggedIn {
		err := fmt.Errorf("search attempted without an authenticated session")
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get("/api/search/autocomplete")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make search request")
		return SearchResult{}, err
	}
	if res.IsError() {
		err := fmt.Errorf("search returned status %d", res.StatusCode())
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, err
	}

	body := res.String()
	trimmed := strings.TrimLeft(body, " \t\r\n")
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var data any
		if json.Unmarshal([]byte(trimmed), &data) == nil {
			return SearchResult{Structured: data}, nil
		}
	}
	return SearchResult{Raw: body}, nil
}

// BestMatch picks the string leaf of a structured result closest to
// the query, by Jaro-Winkler similarity. Returns "" for raw results
// or payloads with no text in them.
func BestMatch(result SearchResult, query string) string {
	if !result.IsStructured() {
		return ""
	}

	var best string
	bestScore := 0.0
	query = strings.ToLower(query)

	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			score := matchr.JaroWinkler(query, strings.ToLower(t), true)
			if score > bestScore {
				bestScore = score
				best = t
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(result.Structured)

	return best
}

package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicolasacchi/vmcli/internal/paginate"
)

// envelope is the success shape {"data": ..., "pagination": {"next": url}}.
// Error envelopes never reach decodeEnvelope; Classify handles them first.
type envelope[T any] struct {
	Data       T           `json:"data"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Next string `json:"next,omitempty"`
}

// decodeEnvelope classifies resp and decodes its data field into T.
func decodeEnvelope[T any](resp *Response) (envelope[T], error) {
	var env envelope[T]
	if err := Classify(resp); err != nil {
		return env, err
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return env, fmt.Errorf("parsing response: %w", err)
	}
	return env, nil
}

// Cursor returns the continuation encoded in pagination.next: the query
// string of the next URL. Empty when there are no further pages.
func (e envelope[T]) Cursor() paginate.Cursor {
	if e.Pagination == nil || e.Pagination.Next == "" {
		return ""
	}
	_, query, found := strings.Cut(e.Pagination.Next, "?")
	if !found {
		return ""
	}
	return paginate.Cursor(query)
}

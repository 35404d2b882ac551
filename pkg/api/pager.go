package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Filters narrows a list call.
type Filters struct {
	// Query is sent with the first page only; cursors carry their own.
	Query url.Values
	// PageSize sets the limit parameter; zero lets the server choose.
	PageSize int
	// Offset sets the offset parameter of the first page.
	Offset int
	// MaxItems stops iteration after this many items; zero means all.
	MaxItems int
}

// Pager walks a paginated collection lazily. A page is fetched only when
// the previous one is exhausted, and a Pager cannot be restarted.
//
//	p := api.List[nimba.Extension](client, nimba.Extensions, nil, api.Filters{})
//	for p.Next(ctx) {
//		item := p.Item()
//	}
//	if err := p.Err(); err != nil { ... }
type Pager[T any] struct {
	client  *Client
	res     Resource
	params  Params
	filters Filters

	started bool
	done    bool
	next    string
	lastURL string

	items []json.RawMessage
	pos   int
	cur   Decoded[T]
	seen  int
	err   error
}

// List returns a pager over a collection. No request is made until Next.
func List[T any](c *Client, res Resource, params Params, filters Filters) *Pager[T] {
	return &Pager[T]{client: c, res: res, params: params, filters: filters}
}

// Next advances to the next item, fetching a page when needed.
func (p *Pager[T]) Next(ctx context.Context) bool {
	if p.err != nil {
		return false
	}
	if p.filters.MaxItems > 0 && p.seen >= p.filters.MaxItems {
		return false
	}

	for p.pos >= len(p.items) {
		if p.done {
			return false
		}
		if !p.fetch(ctx) {
			return false
		}
	}

	raw := p.items[p.pos]
	p.pos++

	item, err := decode[T](p.client, p.res, http.StatusOK, raw)
	if err != nil {
		p.err = err
		return false
	}
	p.cur = *item
	p.seen++
	return true
}

// Item returns the current item.
func (p *Pager[T]) Item() Decoded[T] {
	return p.cur
}

// Err returns the error that stopped iteration, if any.
func (p *Pager[T]) Err() error {
	return p.err
}

func (p *Pager[T]) fetch(ctx context.Context) bool {
	req := &Request{Method: http.MethodGet}

	if !p.started {
		path, err := p.res.CollectionPath(p.params)
		if err != nil {
			p.err = err
			return false
		}
		req.Path = path
		req.Query = p.firstQuery()
		p.started = true
	} else if u, err := url.Parse(p.next); err == nil && u.Scheme != "" && u.Host != "" {
		// The client authenticates every request, so never follow a link off the API host.
		if !p.client.sameOrigin(u) {
			p.err = &Error{Kind: Unknown, Message: fmt.Sprintf("pagination link %q points outside %s", p.next, p.client.baseURL.Host)}
			return false
		}
		req.URL = p.next
	} else {
		path, err := p.res.CollectionPath(p.params)
		if err != nil {
			p.err = err
			return false
		}
		req.Path = path
		req.Query = url.Values{"cursor": {p.next}}
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		p.err = err
		return false
	}
	if resp.URL == p.lastURL {
		p.err = &Error{Kind: Unknown, Status: resp.Status, Message: "pagination cursor did not advance", Body: resp.Body}
		return false
	}
	p.lastURL = resp.URL

	items, next, perr := parsePage(resp.Body)
	if perr != nil {
		perr.Status = resp.Status
		p.err = perr
		return false
	}

	p.items = items
	p.pos = 0
	p.next = next
	p.done = next == ""
	return true
}

func (p *Pager[T]) firstQuery() url.Values {
	q := url.Values{}
	for key, values := range p.filters.Query {
		q[key] = append([]string(nil), values...)
	}
	if p.filters.PageSize > 0 {
		q.Set("limit", strconv.Itoa(p.filters.PageSize))
	}
	if p.filters.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.filters.Offset))
	}
	return q
}

// parsePage accepts {"results": [...], "next": ...} envelopes or a bare
// array, which is treated as the final page.
func parsePage(body []byte) ([]json.RawMessage, string, *Error) {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", &Error{Kind: Unknown, Message: "list response is not valid JSON", Body: body, Cause: err}
		}
		return items, "", nil
	}

	var envelope struct {
		Results *[]json.RawMessage `json:"results"`
		Next    *string            `json:"next"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, "", &Error{Kind: Unknown, Message: "list response is not a page", Body: body, Cause: err}
	}
	if envelope.Results == nil {
		return nil, "", &Error{Kind: Unknown, Message: "list response has no results", Body: body}
	}

	next := ""
	if envelope.Next != nil {
		next = *envelope.Next
	}
	return *envelope.Results, next, nil
}

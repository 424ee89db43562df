// Package pagination reads limit/offset query parameters and renders paged
// list responses.
package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one page window. Limit is always in [1, MaxLimit] and Offset is
// never negative.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=. Missing or malformed values fall
// back to the defaults.
func FromContext(c echo.Context) Params {
	return New(atoi(c.QueryParam("limit")), atoi(c.QueryParam("offset")))
}

// New clamps limit and offset into a valid window.
func New(limit, offset int) Params {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Next returns the offset of the following page, if any row remains.
func (p Params) Next(total int) (int, bool) {
	next := p.Offset + p.Limit
	return next, next < total
}

// Prev returns the offset of the preceding page.
func (p Params) Prev() (int, bool) {
	if p.Offset == 0 {
		return 0, false
	}
	return max(p.Offset-p.Limit, 0), true
}

// Response is the list envelope returned by paged endpoints.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

// Respond sets the Link header for the page and writes the envelope.
func (p Params) Respond(c echo.Context, status int, data interface{}, total int) error {
	_, more := p.Next(total)
	p.setLinkHeader(c, total)
	return c.JSON(status, &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: more,
	})
}

// setLinkHeader writes RFC 8288 next/prev links, keeping the request's
// other query parameters.
func (p Params) setLinkHeader(c echo.Context, total int) {
	var links []string
	if off, ok := p.Next(total); ok {
		links = append(links, p.link(c, off, "next"))
	}
	if off, ok := p.Prev(); ok {
		links = append(links, p.link(c, off, "prev"))
	}
	if len(links) > 0 {
		c.Response().Header().Set("Link", strings.Join(links, ", "))
	}
}

func (p Params) link(c echo.Context, offset int, rel string) string {
	q := c.Request().URL.Query()
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("offset", strconv.Itoa(offset))
	return fmt.Sprintf("<%s?%s>; rel=%q", c.Request().URL.Path, q.Encode(), rel)
}

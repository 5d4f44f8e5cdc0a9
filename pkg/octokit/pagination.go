package octokit

import (
	"context"
	"iter"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/octokit/internal/constants"
)

var (
	linkPattern = regexp.MustCompile(`<([^>]*)>[^,<]*?rel="([^"]+)"`)
	pagePattern = regexp.MustCompile(`[?&]page=(\d+)`)
)

// Pagination is the cursor derived from a response's Link header.
type Pagination struct {
	// Relations maps each Link relation ("next", "last", ...) to its page.
	Relations   map[string]int
	NextPage    int
	PrevPage    int
	FirstPage   int
	LastPage    int
	CurrentPage int
	Pages       int
	HasPages    bool
	IsLastPage  bool
}

// ParseLinkHeader parses entries of the form `<url?page=N>; rel="kind"`
// into {kind: N}. Entries without a page query parameter are skipped.
func ParseLinkHeader(link string) map[string]int {
	rels := make(map[string]int)

	for _, m := range linkPattern.FindAllStringSubmatch(link, -1) {
		pm := pagePattern.FindStringSubmatch(m[1])
		if pm == nil {
			continue
		}

		page, err := strconv.Atoi(pm[1])
		if err != nil {
			continue
		}

		for _, rel := range strings.Fields(m[2]) {
			rels[rel] = page
		}
	}

	return rels
}

// NewPagination builds the cursor for a response. requested is the page the
// caller asked for, or zero when the request carried no page argument.
func NewPagination(link string, requested int) *Pagination {
	rels := ParseLinkHeader(link)
	p := &Pagination{
		Relations: rels,
		NextPage:  rels["next"],
		PrevPage:  rels["prev"],
		FirstPage: rels["first"],
		LastPage:  rels["last"],
	}

	if len(rels) == 0 {
		p.CurrentPage = requested
		p.Pages = requested
		p.IsLastPage = true

		return p
	}

	p.HasPages = true

	switch {
	case requested > 0:
		p.CurrentPage = requested
	case p.NextPage > 0:
		p.CurrentPage = p.NextPage - 1
	case p.PrevPage > 0:
		p.CurrentPage = p.PrevPage + 1
	}

	p.Pages = p.LastPage
	if p.Pages == 0 {
		p.Pages = p.CurrentPage
	}

	p.IsLastPage = p.CurrentPage == p.Pages

	return p
}

// PageFunc fetches one page of results.
type PageFunc func(ctx context.Context, page int, args Args) (*Result, error)

// Pages adapts an operation into a PageFunc that passes the page number as
// the "page" argument.
func Pages(op Operation) PageFunc {
	return func(ctx context.Context, page int, args Args) (*Result, error) {
		call := make(Args, len(args)+1)
		maps.Copy(call, args)
		call[constants.ArgPage] = page

		return op.Call(ctx, call)
	}
}

// Paginate lazily yields each page's body, starting at page (1 when not
// positive) and following next links until the last page. Without a Link
// header it yields exactly one body. Iteration stops at the first error.
func Paginate(ctx context.Context, fetch PageFunc, page int, args Args) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		if page < 1 {
			page = constants.FirstPage
		}

		for {
			err := ctx.Err()
			if err != nil {
				yield(Value{}, err)

				return
			}

			result, err := fetch(ctx, page, args)
			if err != nil {
				yield(Value{}, err)

				return
			}

			if !yield(result.Data(), nil) {
				return
			}

			p := result.Pagination
			if p == nil || !p.HasPages || p.IsLastPage || p.NextPage <= page {
				return
			}

			page = p.NextPage
		}
	}
}

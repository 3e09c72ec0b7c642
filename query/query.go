// Package query resolves raw pagination, sort and search parameters
// into a deterministic query plan consumed by the repositories. It
// never executes I/O itself.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/backset/backset/kit/errors"
)

// QuerySearch is the resolved set of pagination/sort/search parameters
// from a listing request.
type QuerySearch struct {
	// Q is a free-text search term matched case-insensitively as a
	// substring against entity-specific columns. Empty means no filter.
	Q string

	// Sort is the raw directive string, e.g. "name,-created_at". A
	// leading '-' on a field means descending.
	Sort string

	Offset   int64
	PageSize int64

	// IncludeTotal controls whether the count query runs. Callers must
	// not assume a total is present in the page when false.
	IncludeTotal bool
}

// DecodeQuerySearch parses the query string values of a listing
// request, applying defaults and validating ranges.
func DecodeQuerySearch(values url.Values, defaultPageSize int64) (QuerySearch, error) {
	q := QuerySearch{
		Q:            values.Get("q"),
		Sort:         values.Get("sort"),
		PageSize:     defaultPageSize,
		IncludeTotal: true,
	}

	fields := errors.FieldErrors{}

	if v := values.Get("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			fields.Add("offset", errors.FieldError{
				Code:   "range",
				Params: map[string]interface{}{"min": 0, "value": v},
			})
		} else {
			q.Offset = n
		}
	}

	if v := values.Get("page_size"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			fields.Add("page_size", errors.FieldError{
				Code:   "range",
				Params: map[string]interface{}{"min": 1, "value": v},
			})
		} else {
			q.PageSize = n
		}
	}

	if v := values.Get("include_total"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields.Add("include_total", errors.FieldError{
				Code:   "boolean",
				Params: map[string]interface{}{"value": v},
			})
		} else {
			q.IncludeTotal = b
		}
	}

	if len(fields) > 0 {
		return QuerySearch{}, errors.Validation(fields)
	}

	return q, nil
}

// ParseSort parses the sort directive string "col1,col2,-col3..." into
// a list of order clauses, translating a leading '-' into a DESC
// keyword, e.g. "-name" becomes "name DESC". Directives referencing
// fields outside the allow-list are silently dropped.
func (q QuerySearch) ParseSort(allowed []string) []string {
	if q.Sort == "" {
		return nil
	}

	var clauses []string
	for _, f := range strings.Split(q.Sort, ",") {
		field := strings.TrimPrefix(f, "-")
		if !contains(allowed, field) {
			continue
		}
		if strings.HasPrefix(f, "-") {
			clauses = append(clauses, field+" DESC")
		} else {
			clauses = append(clauses, field)
		}
	}

	return clauses
}

// OrderBy resolves the sort directives into a SQL ORDER BY expression,
// falling back to the given default order when no directive survives
// the allow-list.
func (q QuerySearch) OrderBy(allowed []string, def string) string {
	clauses := q.ParseSort(allowed)
	if len(clauses) == 0 {
		return def
	}
	return strings.Join(clauses, ", ")
}

func contains(fields []string, f string) bool {
	for _, v := range fields {
		if v == f {
			return true
		}
	}
	return false
}

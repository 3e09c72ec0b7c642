package query

import (
	"net/url"
	"testing"

	"github.com/backset/backset/kit/errors"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sort    string
		allowed []string
		want    []string
	}{
		{
			name:    "no directives",
			sort:    "",
			allowed: []string{"a", "b"},
			want:    nil,
		},
		{
			name:    "ascending and descending",
			sort:    "a,-b",
			allowed: []string{"a", "b"},
			want:    []string{"a", "b DESC"},
		},
		{
			name:    "unknown fields are dropped",
			sort:    "name,-b,c",
			allowed: []string{"name", "c"},
			want:    []string{"name", "c"},
		},
		{
			name:    "all directives unknown",
			sort:    "x,-y",
			allowed: []string{"a", "b"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuerySearch{Sort: tt.sort}
			require.Equal(t, tt.want, q.ParseSort(tt.allowed))
		})
	}
}

func TestOrderBy(t *testing.T) {
	t.Parallel()

	q := QuerySearch{}
	require.Equal(t, "id", q.OrderBy([]string{"id", "name"}, "id"))

	q = QuerySearch{Sort: "name,-created_at"}
	require.Equal(t, "name, created_at DESC", q.OrderBy([]string{"id", "name", "created_at"}, "id"))

	// nothing survives the allow-list, fall back to the default order
	q = QuerySearch{Sort: "secret"}
	require.Equal(t, "created_at DESC", q.OrderBy([]string{"id", "created_at"}, "created_at DESC"))
}

func TestDecodeQuerySearchDefaults(t *testing.T) {
	t.Parallel()

	q, err := DecodeQuerySearch(url.Values{}, 50)
	require.NoError(t, err)
	require.Equal(t, QuerySearch{PageSize: 50, IncludeTotal: true}, q)
}

func TestDecodeQuerySearch(t *testing.T) {
	t.Parallel()

	values := url.Values{}
	values.Set("q", "acme")
	values.Set("sort", "-name")
	values.Set("offset", "10")
	values.Set("page_size", "5")
	values.Set("include_total", "false")

	q, err := DecodeQuerySearch(values, 50)
	require.NoError(t, err)
	require.Equal(t, QuerySearch{
		Q:        "acme",
		Sort:     "-name",
		Offset:   10,
		PageSize: 5,
	}, q)
}

func TestDecodeQuerySearchInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"negative offset", "offset", "-1", "offset"},
		{"non-numeric offset", "offset", "ten", "offset"},
		{"zero page size", "page_size", "0", "page_size"},
		{"non-numeric page size", "page_size", "many", "page_size"},
		{"bad include_total", "include_total", "maybe", "include_total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{}
			values.Set(tt.key, tt.value)

			_, err := DecodeQuerySearch(values, 50)
			require.Error(t, err)
			require.Equal(t, errors.EInvalid, errors.ErrorCode(err))
			require.Contains(t, errors.ErrorFields(err), tt.field)
		})
	}
}

func TestPageHelpers(t *testing.T) {
	t.Parallel()

	empty := EmptyPage[string]()
	require.Empty(t, empty.Data)
	require.NotNil(t, empty.Total)
	require.Equal(t, int64(0), *empty.Total)

	total := int64(42)
	page := PageWithData([]string{"a", "b", "c"}, &total, 10)
	require.Equal(t, int64(3), page.PageSize)
	require.Equal(t, int64(10), page.Offset)
	require.Equal(t, int64(42), *page.Total)

	// total omitted when the caller skipped the count query
	page = PageWithData([]string{"a"}, nil, 0)
	require.Nil(t, page.Total)
}

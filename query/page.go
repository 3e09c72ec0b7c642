package query

// Page is the envelope for paginated results. Total is nil when the
// caller opted out of the count query with include_total=false.
type Page[T any] struct {
	Data     []T    `json:"data"`
	Offset   int64  `json:"offset"`
	PageSize int64  `json:"page_size"`
	Total    *int64 `json:"total"`

	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// EmptyPage returns a page with no results, used to short-circuit the
// listing query when a prior count returned zero.
func EmptyPage[T any]() *Page[T] {
	var zero int64
	return &Page[T]{
		Data:  []T{},
		Total: &zero,
	}
}

// PageWithData builds a page around a result slice. The reported
// page_size is the number of rows actually returned, which may be
// fewer than requested at the tail.
func PageWithData[T any](data []T, total *int64, offset int64) *Page[T] {
	return &Page[T]{
		Data:     data,
		Offset:   offset,
		PageSize: int64(len(data)),
		Total:    total,
	}
}

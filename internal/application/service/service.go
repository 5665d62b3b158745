package service

import "time"

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Clock returns the current time. Services take one so tests can pin dates.
type Clock func() time.Time

const (
	defaultPage = 1
	defaultSize = 10
	maxSize     = 100
)

// Page is one slice of a larger ordered result
type Page[T any] struct {
	Records []T   `json:"records"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Size    int   `json:"size"`
}

// normalizePage applies the default page number and size
func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = defaultPage
	}
	if size <= 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}

// sliceFrom returns the requested page of an already materialized list
func sliceFrom[T any](items []T, page, size int) []T {
	from := (page - 1) * size
	if from >= len(items) {
		return []T{}
	}
	to := from + size
	if to > len(items) {
		to = len(items)
	}
	return items[from:to]
}

func orNow(clock Clock) Clock {
	if clock == nil {
		return time.Now
	}
	return clock
}

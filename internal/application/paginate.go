package application

// DefaultPageSize is the number of rows per board table.
const DefaultPageSize = 10

// Paginate returns the 1-based page of items. Pages below 1 are read as 1;
// pages past the end are empty.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	// Compare page numbers before multiplying so a huge page cannot overflow.
	if page-1 >= (len(items)+size-1)/size {
		return []T{}
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// TotalPages is ceil(count/size), never less than 1.
func TotalPages(count, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// PageCursors tracks the current and past tables independently.
type PageCursors struct {
	Current int
	Past    int
}

func newPageCursors() PageCursors {
	return PageCursors{Current: 1, Past: 1}
}

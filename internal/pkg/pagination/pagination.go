// Package pagination converts page requests and raw paged results into the bounded page contract.
package pagination

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/wangyingjie930/orderflow/internal/pkg/apperr"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort names an API sort key and direction. Column is the storage column the key maps to.
type Sort struct {
	Key       string
	Column    string
	Direction Direction
}

// ColumnIn returns the storage column when it is one of the sortable columns; repositories
// never order by a name outside that set.
func (s Sort) ColumnIn(sortable map[string]string) (string, bool) {
	if s.Column == "" {
		return "", false
	}
	for _, column := range sortable {
		if column == s.Column {
			return column, true
		}
	}
	return "", false
}

// Request is a zero-based page request.
type Request struct {
	Page int
	Size int
	Sort Sort
}

// Offset is the number of elements to skip.
func (r Request) Offset() int {
	return r.Page * r.Size
}

// Defaults are the caller-configured constants used when a query omits a parameter.
type Defaults struct {
	Size     int
	MaxSize  int
	SortKey  string
	SortDir  Direction
	Sortable map[string]string // API key -> column
}

// Page is the immutable wrapper returned by every collection query.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Last          bool  `json:"last"`
}

// TotalPages is ceil(total/size) for size > 0.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// NewPage wraps one slice of results. content is truncated to req.Size and never nil.
func NewPage[T any](content []T, req Request, total int64) Page[T] {
	if len(content) > req.Size {
		content = content[:req.Size]
	}
	out := make([]T, len(content))
	copy(out, content)

	totalPages := TotalPages(total, req.Size)
	return Page[T]{
		Content:       out,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		Last:          total == 0 || req.Page == totalPages-1,
	}
}

// Map converts every element of a page, keeping the metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	content := make([]U, len(p.Content))
	for i, item := range p.Content {
		content[i] = fn(item)
	}
	return Page[U]{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Last:          p.Last,
	}
}

// ParseRequest reads page, size and sort from a query string. Invalid values are reported
// together as a structural validation failure.
func ParseRequest(q url.Values, d Defaults) (Request, error) {
	req := Request{
		Page: 0,
		Size: d.Size,
		Sort: Sort{Key: d.SortKey, Column: d.Sortable[d.SortKey], Direction: d.SortDir},
	}
	fields := map[string]string{}

	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			fields["page"] = "must be a non-negative integer"
		} else {
			req.Page = page
		}
	}

	if raw := strings.TrimSpace(q.Get("size")); raw != "" {
		size, err := strconv.Atoi(raw)
		switch {
		case err != nil || size <= 0:
			fields["size"] = "must be a positive integer"
		case d.MaxSize > 0 && size > d.MaxSize:
			fields["size"] = fmt.Sprintf("must be at most %d", d.MaxSize)
		default:
			req.Size = size
		}
	}

	// page*size must stay representable as an offset
	if _, bad := fields["page"]; !bad && req.Size > 0 && req.Page > math.MaxInt/req.Size {
		fields["page"] = fmt.Sprintf("must be at most %d", math.MaxInt/req.Size)
	}

	if raw := strings.TrimSpace(q.Get("sort")); raw != "" {
		sort, msg := parseSort(raw, d)
		if msg != "" {
			fields["sort"] = msg
		} else {
			req.Sort = sort
		}
	}

	if len(fields) > 0 {
		return Request{}, apperr.Validation(fields)
	}
	return req, nil
}

func parseSort(raw string, d Defaults) (Sort, string) {
	key, dir, _ := strings.Cut(raw, ",")
	key = strings.TrimSpace(key)
	column, ok := d.Sortable[key]
	if !ok {
		return Sort{}, fmt.Sprintf("unsupported sort key %q", key)
	}

	direction := Asc
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		direction = Desc
	default:
		return Sort{}, "direction must be asc or desc"
	}
	return Sort{Key: key, Column: column, Direction: direction}, ""
}

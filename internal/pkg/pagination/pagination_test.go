package pagination

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/orderflow/internal/pkg/apperr"
)

var testDefaults = Defaults{
	Size:    20,
	MaxSize: 100,
	SortKey: "createdAt",
	SortDir: Desc,
	Sortable: map[string]string{
		"createdAt": "created_at",
		"amount":    "amount",
	},
}

func TestTotalPagesAndLast(t *testing.T) {
	t.Parallel()

	for total := int64(0); total <= 61; total++ {
		for _, size := range []int{1, 7, 20} {
			pages := TotalPages(total, size)
			want := int((total + int64(size) - 1) / int64(size))
			require.Equal(t, want, pages, "total=%d size=%d", total, size)

			for page := 0; page < pages; page++ {
				p := NewPage(make([]int, 0), Request{Page: page, Size: size}, total)
				assert.Equal(t, page == pages-1, p.Last, "total=%d size=%d page=%d", total, size, page)
			}
			if total == 0 {
				p := NewPage([]int{}, Request{Page: 0, Size: size}, 0)
				assert.True(t, p.Last)
				assert.Equal(t, 0, p.TotalPages)
			}
		}
	}
}

func TestNewPageFortyFiveRecords(t *testing.T) {
	t.Parallel()

	content := make([]int, 20)
	p := NewPage(content, Request{Page: 0, Size: 20}, 45)

	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Content, 20)
	assert.False(t, p.Last)
	assert.Equal(t, int64(45), p.TotalElements)

	last := NewPage(make([]int, 5), Request{Page: 2, Size: 20}, 45)
	assert.True(t, last.Last)
	assert.Len(t, last.Content, 5)
}

func TestNewPageTruncatesAndNeverNil(t *testing.T) {
	t.Parallel()

	p := NewPage([]string{"a", "b", "c"}, Request{Page: 0, Size: 2}, 3)
	assert.Equal(t, []string{"a", "b"}, p.Content)

	empty := NewPage[string](nil, Request{Page: 0, Size: 2}, 0)
	assert.NotNil(t, empty.Content)
	assert.Empty(t, empty.Content)
}

func TestMap(t *testing.T) {
	t.Parallel()

	p := NewPage([]int{1, 2}, Request{Page: 1, Size: 2}, 4)
	mapped := Map(p, func(i int) string { return string(rune('a' + i)) })

	assert.Equal(t, []string{"b", "c"}, mapped.Content)
	assert.Equal(t, p.Page, mapped.Page)
	assert.Equal(t, p.TotalPages, mapped.TotalPages)
	assert.Equal(t, p.Last, mapped.Last)
}

func TestSortColumnIn(t *testing.T) {
	t.Parallel()

	column, ok := Sort{Key: "amount", Column: "amount"}.ColumnIn(testDefaults.Sortable)
	assert.True(t, ok)
	assert.Equal(t, "amount", column)

	_, ok = Sort{Key: "amount", Column: "amount; DROP TABLE orders"}.ColumnIn(testDefaults.Sortable)
	assert.False(t, ok)
	_, ok = Sort{Key: "createdAt"}.ColumnIn(testDefaults.Sortable)
	assert.False(t, ok)
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		req, err := ParseRequest(url.Values{}, testDefaults)
		require.NoError(t, err)
		assert.Equal(t, Request{Page: 0, Size: 20, Sort: Sort{Key: "createdAt", Column: "created_at", Direction: Desc}}, req)
	})

	t.Run("explicit values", func(t *testing.T) {
		t.Parallel()

		req, err := ParseRequest(url.Values{"page": {"2"}, "size": {"5"}, "sort": {"amount,desc"}}, testDefaults)
		require.NoError(t, err)
		assert.Equal(t, 2, req.Page)
		assert.Equal(t, 5, req.Size)
		assert.Equal(t, Sort{Key: "amount", Column: "amount", Direction: Desc}, req.Sort)
		assert.Equal(t, 10, req.Offset())
	})

	t.Run("sort without direction is ascending", func(t *testing.T) {
		t.Parallel()

		req, err := ParseRequest(url.Values{"sort": {"amount"}}, testDefaults)
		require.NoError(t, err)
		assert.Equal(t, Asc, req.Sort.Direction)
	})

	t.Run("invalid values are reported per field", func(t *testing.T) {
		t.Parallel()

		_, err := ParseRequest(url.Values{"page": {"-1"}, "size": {"500"}, "sort": {"password,asc"}}, testDefaults)
		require.Error(t, err)

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Contains(t, appErr.Fields, "page")
		assert.Equal(t, "must be at most 100", appErr.Fields["size"])
		assert.Contains(t, appErr.Fields["sort"], "password")
	})

	t.Run("zero size rejected", func(t *testing.T) {
		t.Parallel()

		_, err := ParseRequest(url.Values{"size": {"0"}}, testDefaults)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("page whose offset overflows is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := ParseRequest(url.Values{"page": {"922337203685477581"}, "size": {"20"}}, testDefaults)
		require.Error(t, err)
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Equal(t, fmt.Sprintf("must be at most %d", math.MaxInt/20), appErr.Fields["page"])

		req, err := ParseRequest(url.Values{"page": {strconv.Itoa(math.MaxInt / 20)}, "size": {"20"}}, testDefaults)
		require.NoError(t, err)
		assert.Positive(t, req.Offset())
	})
}

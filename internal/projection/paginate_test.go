package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		name      string
		n, page   int
		size      int
		wantPage  int
		wantPages int
		wantLen   int
		prev      bool
		next      bool
	}{
		{"empty has one page", 0, 1, 9, 1, 1, 0, false, false},
		{"first page", 20, 1, 9, 1, 3, 9, false, true},
		{"last partial page", 20, 3, 9, 3, 3, 2, true, false},
		{"page above range clamps", 20, 99, 9, 3, 3, 2, true, false},
		{"page below range clamps", 20, -4, 9, 1, 3, 9, false, true},
		{"exact multiple", 18, 2, 9, 2, 2, 9, true, false},
		{"non positive size uses default", 10, 2, 0, 2, 2, 1, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Paginate(seq(tc.n), tc.page, tc.size)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantPages, p.TotalPages)
			assert.Len(t, p.Items, tc.wantLen)
			assert.Equal(t, tc.n, p.TotalItems)
			assert.Equal(t, tc.prev, p.HasPrev)
			assert.Equal(t, tc.next, p.HasNext)
		})
	}
}

func TestPaginate_CoversEveryItemOnce(t *testing.T) {
	for _, n := range []int{0, 1, 8, 9, 10, 27, 31} {
		for _, size := range []int{1, 4, 9} {
			items := seq(n)
			first := Paginate(items, 1, size)
			var got []int
			for page := 1; page <= first.TotalPages; page++ {
				got = append(got, Paginate(items, page, size).Items...)
			}
			if n == 0 {
				assert.Empty(t, got)
				continue
			}
			assert.Equal(t, items, got, "n=%d size=%d", n, size)
		}
	}
}

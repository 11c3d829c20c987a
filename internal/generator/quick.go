package generator

import (
	"fmt"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/trace"
)

// quickSort: схема Ломуто, опорный элемент последний, сначала левая часть.
func quickSort(l listing.Listing, values []int) trace.Trace {
	r := newRecorder(listing.Quick, l, values)
	if len(r.arr) > 1 {
		quickRange(r, 0, len(r.arr)-1)
	}
	return r.finish()
}

func quickRange(r *recorder, lo, hi int) {
	if lo >= hi {
		return
	}
	p := partition(r, lo, hi)
	quickRange(r, lo, p-1)
	quickRange(r, p+1, hi)
}

func partition(r *recorder, lo, hi int) int {
	pivot := r.arr[hi]
	i := lo - 1
	for j := lo; j < hi; j++ {
		r.emit("compare", trace.RoleComparing, fmt.Sprintf("Compare a[%d]=%d with pivot %d", j, r.arr[j], pivot), j, hi)
		if r.arr[j] > pivot {
			continue
		}
		i++
		if i != j {
			r.swap(i, j)
			r.emit("swap", trace.RoleSwapping, fmt.Sprintf("Move %d left of the boundary: swap a[%d] and a[%d]", r.arr[i], i, j), i, j)
		}
	}
	if i+1 != hi {
		r.swap(i+1, hi)
		r.emit("pivot", trace.RoleSwapping, fmt.Sprintf("Place pivot %d at a[%d]", pivot, i+1), i+1, hi)
	}
	return i + 1
}

package generator

import (
	"fmt"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/trace"
)

func insertionSort(l listing.Listing, values []int) trace.Trace {
	r := newRecorder(listing.Insertion, l, values)
	n := len(r.arr)
	if n <= 1 {
		return r.finish()
	}
	for i := 1; i < n; i++ {
		key := r.arr[i]
		r.emit("key", trace.RoleComparing, fmt.Sprintf("Take key a[%d]=%d", i, key), i)
		j := i - 1
		for j >= 0 {
			r.emit("compare", trace.RoleComparing, fmt.Sprintf("Compare a[%d]=%d with key %d", j, r.arr[j], key), j, j+1)
			if r.arr[j] <= key {
				break
			}
			r.arr[j+1] = r.arr[j]
			r.emit("shift", trace.RoleSwapping, fmt.Sprintf("Shift %d to a[%d]", r.arr[j], j+1), j+1)
			j--
		}
		r.arr[j+1] = key
		r.emit("place", trace.RoleSwapping, fmt.Sprintf("Place key %d at a[%d]", key, j+1), j+1)
	}
	return r.finish()
}

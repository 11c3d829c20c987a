package generator

import (
	"fmt"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/trace"
)

func bubbleSort(l listing.Listing, values []int) trace.Trace {
	r := newRecorder(listing.Bubble, l, values)
	n := len(r.arr)
	if n <= 1 {
		return r.finish()
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n-i-1; j++ {
			r.compare("compare", j, j+1)
			if r.arr[j] > r.arr[j+1] {
				r.emit("swap", trace.RoleNone, fmt.Sprintf("%d > %d, swap", r.arr[j], r.arr[j+1]))
				r.swap(j, j+1)
				r.emit("swapped", trace.RoleSwapping, fmt.Sprintf("Swapped a[%d] and a[%d]", j, j+1), j, j+1)
			}
		}
	}
	return r.finish()
}

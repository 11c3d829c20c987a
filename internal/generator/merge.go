package generator

import (
	"fmt"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/trace"
)

func mergeSort(l listing.Listing, values []int) trace.Trace {
	r := newRecorder(listing.Merge, l, values)
	if len(r.arr) > 1 {
		mergeRange(r, 0, len(r.arr)-1)
	}
	return r.finish()
}

func mergeRange(r *recorder, lo, hi int) {
	if lo >= hi {
		return
	}
	mid := lo + (hi-lo)/2
	mergeRange(r, lo, mid)
	mergeRange(r, mid+1, hi)
	merge(r, lo, mid, hi)
}

func merge(r *recorder, lo, mid, hi int) {
	left := append([]int(nil), r.arr[lo:mid+1]...)
	right := append([]int(nil), r.arr[mid+1:hi+1]...)
	i, j, k := 0, 0, lo

	for i < len(left) && j < len(right) {
		r.emit("compare", trace.RoleComparing, fmt.Sprintf("Compare run heads %d and %d", left[i], right[j]), lo+i, mid+1+j)
		// При равенстве берём из левой половины, поэтому сортировка устойчива.
		if left[i] <= right[j] {
			r.arr[k] = left[i]
			i++
			r.emit("write-left", trace.RoleSwapping, fmt.Sprintf("Write %d to a[%d]", r.arr[k], k), k)
		} else {
			r.arr[k] = right[j]
			j++
			r.emit("write-right", trace.RoleSwapping, fmt.Sprintf("Write %d to a[%d]", r.arr[k], k), k)
		}
		k++
	}
	for ; i < len(left); i, k = i+1, k+1 {
		r.arr[k] = left[i]
		r.emit("drain-left", trace.RoleSwapping, fmt.Sprintf("Copy remaining %d to a[%d]", r.arr[k], k), k)
	}
	for ; j < len(right); j, k = j+1, k+1 {
		r.arr[k] = right[j]
		r.emit("drain-right", trace.RoleSwapping, fmt.Sprintf("Copy remaining %d to a[%d]", r.arr[k], k), k)
	}
}

package generator

import (
	"fmt"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/trace"
)

// recorder накапливает снимки над рабочей копией массива.
type recorder struct {
	alg   listing.Algorithm
	lines listing.Listing
	arr   []int
	steps []trace.Snapshot
}

func newRecorder(alg listing.Algorithm, lines listing.Listing, values []int) *recorder {
	return &recorder{
		alg:   alg,
		lines: lines,
		arr:   append([]int(nil), values...),
	}
}

// emit снимает текущее состояние массива. Роль role получают индексы idx.
func (r *recorder) emit(anchor string, role trace.Role, desc string, idx ...int) {
	line, err := r.lines.Line(anchor)
	if err != nil {
		// Mapper проверяет обязательные якоря при загрузке.
		panic(err)
	}
	var marks map[int]trace.Role
	if len(idx) > 0 && role != trace.RoleNone {
		marks = make(map[int]trace.Role, len(idx))
		for _, i := range idx {
			marks[i] = role
		}
	}
	r.steps = append(r.steps, trace.Snapshot{
		Values:      append([]int(nil), r.arr...),
		Marks:       marks,
		Line:        line,
		Description: desc,
	})
}

func (r *recorder) compare(anchor string, i, j int) {
	r.emit(anchor, trace.RoleComparing, fmt.Sprintf("Compare a[%d]=%d and a[%d]=%d", i, r.arr[i], j, r.arr[j]), i, j)
}

func (r *recorder) swap(i, j int) {
	r.arr[i], r.arr[j] = r.arr[j], r.arr[i]
}

// finish добавляет терминальный снимок и собирает трассу.
func (r *recorder) finish() trace.Trace {
	marks := make(map[int]trace.Role, len(r.arr))
	for i := range r.arr {
		marks[i] = trace.RoleSorted
	}
	r.steps = append(r.steps, trace.Snapshot{
		Values:      append([]int(nil), r.arr...),
		Marks:       marks,
		Terminal:    true,
		Description: "Array is sorted",
	})
	return trace.New(string(r.alg), r.steps)
}

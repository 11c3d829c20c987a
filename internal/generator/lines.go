package generator

import (
	"fmt"
	"strings"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/trace"
)

// stepLines строит трассу «одна строка, один шаг». Код не выполняется:
// шаг означает следующую строку текста, а не следующую операцию программы.
func stepLines(src listing.Listing) trace.Trace {
	steps := make([]trace.Snapshot, 0, len(src.Lines)+1)
	for i, line := range src.Lines {
		steps = append(steps, trace.Snapshot{
			Values:      []int{},
			Line:        i + 1,
			Description: fmt.Sprintf("Executing line %d: %s", i+1, strings.TrimSpace(line)),
		})
	}
	steps = append(steps, trace.Snapshot{
		Values:      []int{},
		Marks:       map[int]trace.Role{},
		Terminal:    true,
		Description: "End of code",
	})
	return trace.New(string(listing.Code), steps)
}

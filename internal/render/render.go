// Package render выводит шаги трассы в терминал: столбики значений с цветом роли
// и листинг с подсвеченной строкой.
package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/playback"
	"github.com/pv/algoviz-go/internal/trace"
)

const barWidth = 30

// Frame: один кадр проигрывания.
type Frame struct {
	State    playback.State
	Snapshot trace.Snapshot
}

// Sink принимает кадры проигрывания.
type Sink interface {
	Show(ctx context.Context, frame Frame) error
}

// TextSink рисует кадры в writer.
type TextSink struct {
	Writer  io.Writer
	Listing *listing.Listing
	NoColor bool

	// ClearScreen перерисовывает кадр на месте (для терминала).
	ClearScreen bool
}

func (s *TextSink) Show(ctx context.Context, frame Frame) error {
	if s.Writer == nil {
		return fmt.Errorf("render: writer is not set")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	if s.ClearScreen {
		b.WriteString("\x1b[H\x1b[2J")
	}
	st := frame.State
	fmt.Fprintf(&b, "%s  step %d/%d  [%s x%g]\n", st.Algorithm, st.Index+1, st.Length, st.Mode, st.Speed)
	s.bars(&b, frame.Snapshot)
	if frame.Snapshot.Description != "" {
		fmt.Fprintf(&b, "%s\n", frame.Snapshot.Description)
	}
	if s.Listing != nil {
		s.source(&b, frame.Snapshot.Line)
	}
	_, err := io.WriteString(s.Writer, b.String())
	return err
}

func (s *TextSink) bars(b *strings.Builder, snap trace.Snapshot) {
	peak := 0
	for _, v := range snap.Values {
		peak = max(peak, abs(v))
	}
	for i, v := range snap.Values {
		n := 0
		if peak > 0 {
			n = int(float64(abs(v)) / float64(peak) * barWidth)
		}
		if v != 0 && n == 0 {
			n = 1
		}
		bar := strings.Repeat("█", n)
		if v < 0 {
			bar = strings.Repeat("░", n)
		}
		c := s.roleColor(snap.Role(i))
		fmt.Fprintf(b, "%3d | %s %d\n", i, c.Sprint(bar), v)
	}
}

func (s *TextSink) source(b *strings.Builder, line int) {
	hl := s.paint(color.FgCyan, color.Bold)
	width := len(strconv.Itoa(len(s.Listing.Lines)))
	for i, text := range s.Listing.Lines {
		if i+1 == line {
			fmt.Fprintf(b, "> %*d  %s\n", width, i+1, hl.Sprint(text))
			continue
		}
		fmt.Fprintf(b, "  %*d  %s\n", width, i+1, text)
	}
}

func (s *TextSink) roleColor(r trace.Role) *color.Color {
	switch r {
	case trace.RoleComparing:
		return s.paint(color.FgYellow)
	case trace.RoleSwapping:
		return s.paint(color.FgRed)
	case trace.RoleSorted:
		return s.paint(color.FgGreen)
	default:
		return s.paint(color.FgBlue)
	}
}

func (s *TextSink) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if s.NoColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// Table сводит трассу в таблицу: номер шага, строка листинга, значения, пометки, описание.
func Table(tr trace.Trace, l *listing.Listing) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(tr.Algorithm())
	tbl.AppendHeader(table.Row{"#", "Line", "Values", "Marks", "Description"})
	for i, snap := range tr.Snapshots() {
		line := ""
		if snap.HasLine() {
			line = strconv.Itoa(snap.Line)
			if l != nil {
				if text, ok := l.Text(snap.Line); ok {
					line += ": " + strings.TrimSpace(text)
				}
			}
		}
		tbl.AppendRow(table.Row{i, line, joinInts(snap.Values), marks(snap), snap.Description})
	}
	tbl.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("Total: %d steps", tr.Len())})
	return tbl.Render()
}

func marks(snap trace.Snapshot) string {
	var parts []string
	for _, r := range []trace.Role{trace.RoleComparing, trace.RoleSwapping, trace.RoleSorted} {
		idx := snap.MarkedIndices(r)
		if len(idx) == 0 {
			continue
		}
		if r == trace.RoleSorted && len(idx) == len(snap.Values) {
			parts = append(parts, "sorted: all")
			continue
		}
		parts = append(parts, r.String()+": "+joinInts(idx))
	}
	return strings.Join(parts, "; ")
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func abs(v int) int {
	if v < 0 {
		// -MinInt переполняется, поэтому крайнее значение прижимается к MaxInt.
		if v == -v {
			return int(^uint(0) >> 1)
		}
		return -v
	}
	return v
}

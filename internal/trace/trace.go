package trace

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Role задаёт роль индекса в текущей операции алгоритма.
type Role int

const (
	RoleNone Role = iota
	RoleComparing
	RoleSwapping
	RoleSorted
)

var roleNames = map[Role]string{
	RoleNone:      "none",
	RoleComparing: "comparing",
	RoleSwapping:  "swapping",
	RoleSorted:    "sorted",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// MarshalText нужен для JSON-ключей и значений.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	for role, name := range roleNames {
		if name == string(text) {
			*r = role
			return nil
		}
	}
	return fmt.Errorf("trace: unknown role %q", text)
}

// Snapshot описывает одно наблюдаемое состояние массива.
type Snapshot struct {
	Values      []int        `json:"values"`
	Marks       map[int]Role `json:"marks,omitempty"`
	Line        int          `json:"line,omitempty"` // с 1; 0, если строки нет
	Terminal    bool         `json:"terminal"`
	Description string       `json:"description,omitempty"`
}

// Role возвращает роль индекса (RoleNone, если метки нет).
func (s Snapshot) Role(idx int) Role {
	return s.Marks[idx]
}

// HasLine сообщает, привязан ли снимок к строке листинга.
func (s Snapshot) HasLine() bool {
	return s.Line > 0
}

// MarkedIndices возвращает отсортированные индексы с ролью r.
func (s Snapshot) MarkedIndices(r Role) []int {
	var out []int
	for idx, role := range s.Marks {
		if role == r {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Values = append([]int(nil), s.Values...)
	if s.Marks != nil {
		out.Marks = make(map[int]Role, len(s.Marks))
		for k, v := range s.Marks {
			out.Marks[k] = v
		}
	}
	return out
}

// Trace: неизменяемая последовательность снимков для пары (алгоритм, вход).
type Trace struct {
	algorithm string
	snapshots []Snapshot
}

// New создаёт трассу. Снимки копируются, вызывающий может переиспользовать срез.
func New(algorithm string, snapshots []Snapshot) Trace {
	cp := make([]Snapshot, len(snapshots))
	for i, s := range snapshots {
		cp[i] = s.clone()
	}
	return Trace{algorithm: algorithm, snapshots: cp}
}

// Algorithm возвращает идентификатор алгоритма, построившего трассу.
func (t Trace) Algorithm() string { return t.algorithm }

// Len возвращает количество снимков.
func (t Trace) Len() int { return len(t.snapshots) }

// At возвращает копию снимка с индексом i.
func (t Trace) At(i int) (Snapshot, bool) {
	if i < 0 || i >= len(t.snapshots) {
		return Snapshot{}, false
	}
	return t.snapshots[i].clone(), true
}

// Last возвращает финальный снимок.
func (t Trace) Last() (Snapshot, bool) {
	return t.At(len(t.snapshots) - 1)
}

// Snapshots возвращает копию всех снимков.
func (t Trace) Snapshots() []Snapshot {
	out := make([]Snapshot, len(t.snapshots))
	for i, s := range t.snapshots {
		out[i] = s.clone()
	}
	return out
}

// Validate проверяет инварианты трассы.
func (t Trace) Validate() error {
	if len(t.snapshots) == 0 {
		return fmt.Errorf("trace: empty trace")
	}
	width := len(t.snapshots[0].Values)
	last := len(t.snapshots) - 1
	for i, s := range t.snapshots {
		if len(s.Values) != width {
			return fmt.Errorf("trace: snapshot %d has %d values, want %d", i, len(s.Values), width)
		}
		for idx := range s.Marks {
			if idx < 0 || idx >= width {
				return fmt.Errorf("trace: snapshot %d marks index %d out of range [0,%d)", i, idx, width)
			}
		}
		if s.Terminal != (i == last) {
			return fmt.Errorf("trace: snapshot %d terminal=%t", i, s.Terminal)
		}
	}
	end := t.snapshots[last]
	if end.Line != 0 {
		return fmt.Errorf("trace: terminal snapshot refers to line %d", end.Line)
	}
	for idx := 0; idx < width; idx++ {
		if end.Marks[idx] != RoleSorted {
			return fmt.Errorf("trace: terminal snapshot index %d is %s", idx, end.Marks[idx])
		}
	}
	return nil
}

type traceJSON struct {
	Algorithm string     `json:"algorithm"`
	Snapshots []Snapshot `json:"snapshots"`
}

func (t Trace) MarshalJSON() ([]byte, error) {
	return json.Marshal(traceJSON{Algorithm: t.algorithm, Snapshots: t.snapshots})
}

func (t *Trace) UnmarshalJSON(data []byte) error {
	var raw traceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Trace{algorithm: raw.Algorithm, snapshots: raw.Snapshots}
	return nil
}

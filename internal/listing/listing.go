package listing

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Algorithm: идентификатор визуализируемого алгоритма.
type Algorithm string

const (
	Bubble    Algorithm = "bubble-sort"
	Insertion Algorithm = "insertion-sort"
	Quick     Algorithm = "quick-sort"
	Merge     Algorithm = "merge-sort"
	Code      Algorithm = "code"
)

var (
	ErrUnknownAlgorithm = errors.New("listing: unknown algorithm")
	ErrUnknownAnchor    = errors.New("listing: unknown anchor")
)

// SortingAlgorithms возвращает алгоритмы сортировки в порядке отображения.
func SortingAlgorithms() []Algorithm {
	return []Algorithm{Bubble, Insertion, Quick, Merge}
}

// IsSorting сообщает, работает ли алгоритм над числовой последовательностью.
func (a Algorithm) IsSorting() bool {
	switch a {
	case Bubble, Insertion, Quick, Merge:
		return true
	default:
		return false
	}
}

// ParseAlgorithm принимает полный id ("bubble-sort") или короткий ("bubble"), без учёта регистра.
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "_", "-")
	for _, alg := range append(SortingAlgorithms(), Code) {
		if norm == string(alg) || norm+"-sort" == string(alg) {
			return alg, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// requiredAnchors: якоря, на которые ссылаются генераторы трасс.
var requiredAnchors = map[Algorithm][]string{
	Bubble:    {"compare", "swap", "swapped"},
	Insertion: {"key", "compare", "shift", "place"},
	Quick:     {"compare", "swap", "pivot"},
	Merge:     {"compare", "write-left", "write-right", "drain-left", "drain-right"},
}

// Complexity: асимптотика, показываемая рядом с листингом.
type Complexity struct {
	Time  string `yaml:"time" json:"time"`
	Space string `yaml:"space" json:"space"`
}

// Listing: исходный текст алгоритма и именованные строки в нём.
type Listing struct {
	Algorithm  Algorithm      `yaml:"-" json:"algorithm"`
	Title      string         `yaml:"title" json:"title"`
	Complexity Complexity     `yaml:"complexity" json:"complexity"`
	Anchors    map[string]int `yaml:"anchors" json:"anchors"`
	Lines      []string       `yaml:"lines" json:"lines"`
}

// Line возвращает номер строки для якоря.
func (l Listing) Line(anchor string) (int, error) {
	n, ok := l.Anchors[anchor]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrUnknownAnchor, l.Algorithm, anchor)
	}
	return n, nil
}

// Text возвращает строку листинга по 1-based номеру.
func (l Listing) Text(line int) (string, bool) {
	if line < 1 || line > len(l.Lines) {
		return "", false
	}
	return l.Lines[line-1], true
}

func (l Listing) validate() error {
	if len(l.Lines) == 0 {
		return fmt.Errorf("listing: %s has no lines", l.Algorithm)
	}
	for name, n := range l.Anchors {
		if n < 1 || n > len(l.Lines) {
			return fmt.Errorf("listing: %s anchor %q points to line %d outside [1,%d]", l.Algorithm, name, n, len(l.Lines))
		}
	}
	for _, name := range requiredAnchors[l.Algorithm] {
		if _, ok := l.Anchors[name]; !ok {
			return fmt.Errorf("%w: %s/%s is required", ErrUnknownAnchor, l.Algorithm, name)
		}
	}
	return nil
}

// FromSource строит листинг из произвольного текста (для пошагового просмотра кода).
func FromSource(src string) Listing {
	return Listing{
		Algorithm: Code,
		Title:     "Code",
		Lines:     SplitLines(src),
	}
}

// SplitLines делит текст по \n, отбрасывая завершающий \r. Пустой текст даёт ноль строк.
func SplitLines(src string) []string {
	if src == "" {
		return nil
	}
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Mapper хранит канонические листинги. После создания не изменяется.
type Mapper struct {
	listings map[Algorithm]Listing
}

//go:embed listings.yaml
var embeddedListings []byte

var (
	defaultOnce   sync.Once
	defaultMapper *Mapper
)

// Default возвращает Mapper со встроенными листингами.
func Default() *Mapper {
	defaultOnce.Do(func() {
		m, err := parse(embeddedListings, ".yaml", nil)
		if err != nil {
			panic(fmt.Sprintf("listing: embedded listings: %v", err))
		}
		defaultMapper = m
	})
	return defaultMapper
}

// Load читает файл с листингами (YAML или JSON) и накладывает его поверх встроенных.
func Load(path string) (*Mapper, error) {
	if path == "" {
		return nil, fmt.Errorf("listing: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}
	return parse(data, strings.ToLower(filepath.Ext(path)), Default())
}

func parse(data []byte, ext string, base *Mapper) (*Mapper, error) {
	raw := map[string]Listing{}
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("listing: failed to decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("listing: failed to decode JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("listing: format %s is not supported", ext)
	}

	m := &Mapper{listings: map[Algorithm]Listing{}}
	if base != nil {
		for alg, l := range base.listings {
			m.listings[alg] = l
		}
	}
	for key, l := range raw {
		alg, err := ParseAlgorithm(key)
		if err != nil {
			return nil, err
		}
		if alg == Code {
			return nil, fmt.Errorf("listing: %s has no fixed listing", Code)
		}
		l.Algorithm = alg
		if err := l.validate(); err != nil {
			return nil, err
		}
		m.listings[alg] = l
	}
	for _, alg := range SortingAlgorithms() {
		if _, ok := m.listings[alg]; !ok {
			return nil, fmt.Errorf("listing: %s is missing", alg)
		}
	}
	return m, nil
}

// Listing возвращает копию листинга алгоритма.
func (m *Mapper) Listing(alg Algorithm) (Listing, error) {
	l, ok := m.listings[alg]
	if !ok {
		return Listing{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
	l.Lines = append([]string(nil), l.Lines...)
	anchors := make(map[string]int, len(l.Anchors))
	for k, v := range l.Anchors {
		anchors[k] = v
	}
	l.Anchors = anchors
	return l, nil
}

// Line возвращает номер строки якоря в листинге алгоритма.
func (m *Mapper) Line(alg Algorithm, anchor string) (int, error) {
	l, ok := m.listings[alg]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
	return l.Line(anchor)
}

// Algorithms возвращает алгоритмы, для которых есть листинги.
func (m *Mapper) Algorithms() []Algorithm {
	out := make([]Algorithm, 0, len(m.listings))
	for alg := range m.listings {
		out = append(out, alg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

package input

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sequence: упорядоченный набор целых чисел для сортировки.
type Sequence []int

// String возвращает запись через запятую, как её вводит пользователь.
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Clone возвращает независимую копию.
func (s Sequence) Clone() Sequence {
	return append(Sequence(nil), s...)
}

// ErrorKind классифицирует ошибки разбора.
type ErrorKind int

const (
	NotANumber ErrorKind = iota + 1
)

func (k ErrorKind) String() string {
	switch k {
	case NotANumber:
		return "not a number"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrNotANumber сопоставляется с любым ValidationError вида NotANumber через errors.Is.
var ErrNotANumber = errors.New("input: not a number")

// ValidationError описывает токен, который не удалось разобрать.
type ValidationError struct {
	Kind     ErrorKind
	Token    string
	Position int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("input: token %d (%q): %s", e.Position, e.Token, e.Kind)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrNotANumber && e.Kind == NotANumber
}

// ParseSequence разбирает строку вида "5, 3, 8" в Sequence.
// Пустые токены (",," или завершающая запятая) считаются ошибкой.
func ParseSequence(text string) (Sequence, error) {
	tokens := strings.Split(text, ",")
	seq := make(Sequence, 0, len(tokens))
	for pos, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, &ValidationError{Kind: NotANumber, Token: tok, Position: pos}
		}
		seq = append(seq, v)
	}
	return seq, nil
}

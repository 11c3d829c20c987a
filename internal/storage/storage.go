package storage

import (
	"strconv"
	"strings"

	"github.com/go-faster/city"

	"github.com/pv/algoviz-go/internal/trace"
)

// Key идентифицирует трассу: алгоритм и входные данные.
type Key struct {
	Algorithm string
	Input     string // каноническая запись входа (последовательность или исходный текст)
	Hash      int64  // cityhash64(Algorithm + "\x00" + Input)
}

// NewKey строит ключ и вычисляет его hash.
func NewKey(algorithm, input string) Key {
	return Key{
		Algorithm: algorithm,
		Input:     input,
		Hash:      HashFor(algorithm, input),
	}
}

// SequenceKey строит ключ для числовой последовательности.
func SequenceKey(algorithm string, values []int) Key {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return NewKey(algorithm, strings.Join(parts, ","))
}

// HashFor вычисляет cityhash64 пары (алгоритм, вход).
func HashFor(algorithm, input string) int64 {
	buf := make([]byte, 0, len(algorithm)+1+len(input))
	buf = append(buf, algorithm...)
	buf = append(buf, 0)
	buf = append(buf, input...)
	return int64(city.Hash64(buf))
}

// TraceStore: хранилище готовых трасс в пределах процесса.
type TraceStore interface {
	// Get возвращает трассу по ключу.
	Get(key Key) (trace.Trace, bool)
	// Put сохраняет трассу. Трассы неизменяемы, повторный Put с тем же ключом заменяет запись.
	Put(key Key, tr trace.Trace)
	// Len возвращает количество сохранённых трасс.
	Len() int
}

// Package generator строит трассы выполнения алгоритмов сортировки и пошагового просмотра кода.
package generator

import (
	"errors"
	"fmt"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/storage"
	"github.com/pv/algoviz-go/internal/trace"
)

var (
	ErrUnknownAlgorithm = errors.New("generator: unknown algorithm")
	ErrNotSorting       = errors.New("generator: algorithm does not take a sequence")
)

type sortFunc func(listing.Listing, []int) trace.Trace

var sorters = map[listing.Algorithm]sortFunc{
	listing.Bubble:    bubbleSort,
	listing.Insertion: insertionSort,
	listing.Quick:     quickSort,
	listing.Merge:     mergeSort,
}

// Registry выбирает генератор по алгоритму. Безопасен для конкурентного использования.
type Registry struct {
	mapper *listing.Mapper
	store  storage.TraceStore
	onGen  func(alg listing.Algorithm, tr trace.Trace, cached bool)
}

// Option настраивает Registry.
type Option func(*Registry)

// WithStore включает кэширование трасс.
func WithStore(store storage.TraceStore) Option {
	return func(r *Registry) { r.store = store }
}

// WithObserver регистрирует коллбек, вызываемый после каждой выдачи трассы.
func WithObserver(fn func(alg listing.Algorithm, tr trace.Trace, cached bool)) Option {
	return func(r *Registry) { r.onGen = fn }
}

// NewRegistry создаёт реестр. При mapper == nil берутся встроенные листинги.
func NewRegistry(mapper *listing.Mapper, opts ...Option) *Registry {
	if mapper == nil {
		mapper = listing.Default()
	}
	r := &Registry{mapper: mapper}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mapper возвращает листинги, с которыми согласованы номера строк трасс.
func (r *Registry) Mapper() *listing.Mapper { return r.mapper }

// Algorithms возвращает поддерживаемые алгоритмы сортировки.
func (r *Registry) Algorithms() []listing.Algorithm {
	return listing.SortingAlgorithms()
}

// Generate строит трассу сортировки последовательности values.
func (r *Registry) Generate(alg listing.Algorithm, values []int) (trace.Trace, error) {
	if alg == listing.Code {
		return trace.Trace{}, fmt.Errorf("%w: %s", ErrNotSorting, alg)
	}
	sorter, ok := sorters[alg]
	if !ok {
		return trace.Trace{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
	l, err := r.mapper.Listing(alg)
	if err != nil {
		return trace.Trace{}, fmt.Errorf("generator: %w", err)
	}
	key := storage.SequenceKey(string(alg), values)
	return r.cached(alg, key, func() trace.Trace { return sorter(l, values) }), nil
}

// GenerateSource строит трассу построчного просмотра исходного текста.
func (r *Registry) GenerateSource(src string) trace.Trace {
	key := storage.NewKey(string(listing.Code), src)
	return r.cached(listing.Code, key, func() trace.Trace { return stepLines(listing.FromSource(src)) })
}

func (r *Registry) cached(alg listing.Algorithm, key storage.Key, build func() trace.Trace) trace.Trace {
	if r.store != nil {
		if tr, ok := r.store.Get(key); ok {
			r.notify(alg, tr, true)
			return tr
		}
	}
	tr := build()
	if r.store != nil {
		r.store.Put(key, tr)
	}
	r.notify(alg, tr, false)
	return tr
}

func (r *Registry) notify(alg listing.Algorithm, tr trace.Trace, cached bool) {
	if r.onGen != nil {
		r.onGen(alg, tr, cached)
	}
}

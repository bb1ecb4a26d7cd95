package cvalue

import (
	"sync"

	"github.com/kbukum/constellation/ctype"
	apperr "github.com/kbukum/constellation/errors"
)

// LazyJsonValue defers full CValue conversion of a raw JSON payload until
// Materialize is called. Materialize is idempotent: repeated calls return
// the cached result without reconverting.
type LazyJsonValue struct {
	mu       sync.Mutex
	raw      any
	declared ctype.CType
	value    CValue
	done     bool
}

// NewLazyJsonValue wraps a raw (already json.Unmarshal'd) JSON value.
func NewLazyJsonValue(raw any, declared ctype.CType) *LazyJsonValue {
	return &LazyJsonValue{raw: raw, declared: declared}
}

// Materialize converts the wrapped JSON into a CValue, caching the result.
func (l *LazyJsonValue) Materialize() (CValue, *apperr.AppError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return l.value, nil
	}
	v, err := Decode(l.raw, l.declared)
	if err != nil {
		return nil, err
	}
	l.value = v
	l.done = true
	return v, nil
}

// LazyListValue defers element conversion of a JSON array: Get(i)
// materializes and caches only element i, never the whole list.
type LazyListValue struct {
	mu       sync.Mutex
	rawItems []any
	elemType ctype.CType
	cache    map[int]CValue
}

// NewLazyListValue wraps a raw JSON array under the given element type.
func NewLazyListValue(rawItems []any, elemType ctype.CType) *LazyListValue {
	return &LazyListValue{rawItems: rawItems, elemType: elemType, cache: make(map[int]CValue)}
}

// Len returns the number of elements, without materializing any of them.
func (l *LazyListValue) Len() int { return len(l.rawItems) }

// Get materializes and caches element i.
func (l *LazyListValue) Get(i int) (CValue, *apperr.AppError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.cache[i]; ok {
		return v, nil
	}
	rv, err := decodeRawValue(l.rawItems[i], l.elemType)
	if err != nil {
		return nil, err
	}
	v, ferr := FromRaw(l.elemType, rv)
	if ferr != nil {
		return nil, apperr.CodecError(ferr.Error(), ferr)
	}
	l.cache[i] = v
	return v, nil
}

// MaterializedCount reports how many distinct elements have been
// materialized so far — exposed for tests that assert laziness.
func (l *LazyListValue) MaterializedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

// Materialize forces conversion of every element and returns the fully
// eager CList CValue.
func (l *LazyListValue) Materialize() (CValue, *apperr.AppError) {
	items := make([]CValue, l.Len())
	for i := range items {
		v, err := l.Get(i)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return List(l.elemType, items...), nil
}

// LazyProductValue defers field conversion of a JSON object: GetField(name)
// materializes and caches only that field.
type LazyProductValue struct {
	mu        sync.Mutex
	rawFields map[string]any
	structure map[string]ctype.CType
	cache     map[string]CValue
}

// NewLazyProductValue wraps a raw JSON object under the given structure.
func NewLazyProductValue(rawFields map[string]any, structure map[string]ctype.CType) *LazyProductValue {
	return &LazyProductValue{rawFields: rawFields, structure: structure, cache: make(map[string]CValue)}
}

// GetField materializes and caches the named field.
func (l *LazyProductValue) GetField(name string) (CValue, *apperr.AppError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.cache[name]; ok {
		return v, nil
	}
	ft, ok := l.structure[name]
	if !ok {
		return nil, apperr.CodecError("unknown product field "+name, nil)
	}
	raw, ok := l.rawFields[name]
	if !ok {
		return nil, apperr.CodecError("missing product field "+name, nil)
	}
	rv, err := decodeRawValue(raw, ft)
	if err != nil {
		return nil, err
	}
	v, ferr := FromRaw(ft, rv)
	if ferr != nil {
		return nil, apperr.CodecError(ferr.Error(), ferr)
	}
	l.cache[name] = v
	return v, nil
}

// MaterializedCount reports how many distinct fields have been materialized
// so far — exposed for tests that assert laziness.
func (l *LazyProductValue) MaterializedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

// Materialize forces conversion of every field and returns the fully eager
// CProduct CValue.
func (l *LazyProductValue) Materialize() (CValue, *apperr.AppError) {
	fields := make(map[string]CValue, len(l.structure))
	for name := range l.structure {
		v, err := l.GetField(name)
		if err != nil {
			return nil, err
		}
		fields[name] = v
	}
	return Product(l.structure, fields), nil
}

// Package dbtest provides an in-memory db.Store for tests.
package dbtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bookit/db"

	"go.mongodb.org/mongo-driver/bson"
)

// Memory keeps documents as bson maps so partial updates behave like $set.
type Memory[T any] struct {
	mu     sync.Mutex
	order  []string
	docs   map[string]bson.M
	err    error
	unique []string
}

func NewMemory[T any](seed ...T) *Memory[T] {
	m := &Memory[T]{docs: make(map[string]bson.M)}
	for _, d := range seed {
		if _, err := m.Create(context.Background(), d); err != nil {
			panic(err)
		}
	}
	return m
}

// UniqueOn makes writes fail with db.ErrDuplicate when another document
// already holds the same non-empty value in one of fields, like a unique
// index would.
func (m *Memory[T]) UniqueOn(fields ...string) *Memory[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unique = append(m.unique, fields...)
	return m
}

// conflict reports a unique field of doc already used by another id.
func (m *Memory[T]) conflict(id string, doc bson.M) error {
	for _, f := range m.unique {
		v, ok := doc[f]
		if !ok || v == nil || v == "" {
			continue
		}
		for otherID, other := range m.docs {
			if otherID != id && other[f] == v {
				return fmt.Errorf("dbtest: %s %v: %w", f, v, db.ErrDuplicate)
			}
		}
	}
	return nil
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (m *Memory[T]) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *Memory[T]) Get(_ context.Context, id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	raw, ok := m.docs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return decode[T](raw)
}

func (m *Memory[T]) List(ctx context.Context) ([]T, error) {
	return m.filter(func(bson.M) bool { return true }, 0, false)
}

// ListByField mirrors the mongo store: newest created_at first.
func (m *Memory[T]) ListByField(_ context.Context, field string, value any, limit int64) ([]T, error) {
	return m.filter(func(d bson.M) bool { return d[field] == value }, limit, true)
}

func (m *Memory[T]) filter(keep func(bson.M) bool, limit int64, newestFirst bool) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var matched []bson.M
	for _, id := range m.order {
		if d := m.docs[id]; keep(d) {
			matched = append(matched, d)
		}
	}
	if newestFirst {
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := matched[i]["created_at"].(string)
			b, _ := matched[j]["created_at"].(string)
			return a > b
		})
	}
	if limit > 0 && int64(len(matched)) > limit {
		matched = matched[:limit]
	}

	out := []T{}
	for _, d := range matched {
		doc, err := decode[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (m *Memory[T]) Create(_ context.Context, doc T) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	raw, err := encode(doc)
	if err != nil {
		return nil, err
	}
	id, _ := raw["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("dbtest: document has no id")
	}
	if _, dup := m.docs[id]; dup {
		return nil, fmt.Errorf("dbtest: id %q: %w", id, db.ErrDuplicate)
	}
	if err := m.conflict(id, raw); err != nil {
		return nil, err
	}
	m.docs[id] = raw
	m.order = append(m.order, id)
	return &doc, nil
}

func (m *Memory[T]) Update(_ context.Context, id string, fields map[string]any) (*T, error) {
	return m.set(id, fields, false)
}

func (m *Memory[T]) Upsert(_ context.Context, id string, fields map[string]any) (*T, error) {
	return m.set(id, fields, true)
}

func (m *Memory[T]) set(id string, fields map[string]any, upsert bool) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	raw, ok := m.docs[id]
	if !ok {
		if !upsert {
			return nil, db.ErrNotFound
		}
		raw = bson.M{"id": id}
	}
	next := bson.M{}
	for k, v := range raw {
		next[k] = v
	}
	for k, v := range fields {
		next[k] = v
	}
	if err := m.conflict(id, next); err != nil {
		return nil, err
	}
	doc, err := decode[T](next)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.order = append(m.order, id)
	}
	m.docs[id] = next
	return doc, nil
}

func (m *Memory[T]) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.docs[id]; !ok {
		return false, nil
	}
	delete(m.docs, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func encode(doc any) (bson.M, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("dbtest: marshal: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("dbtest: unmarshal: %w", err)
	}
	return m, nil
}

func decode[T any](m bson.M) (*T, error) {
	b, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("dbtest: marshal: %w", err)
	}
	var doc T
	if err := bson.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("dbtest: decode: %w", err)
	}
	return &doc, nil
}

var _ db.Store[struct{}] = (*Memory[struct{}])(nil)

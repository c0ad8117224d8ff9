package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/studytrackapp/studytrack-server/internal/store"
)

const (
	// Unique index keys: {prefix}idx:{name}:{value} -> id
	uniqueSegment = "idx:"
	// Lookup keys: {prefix}lkp:{name}:{value}:{id} -> empty
	lookupSegment = "lkp:"

	// deleteBatchSize bounds the keys touched by one transaction during bulk deletes.
	deleteBatchSize = 200
	// mutateRetries bounds optimistic retries when concurrent writers conflict.
	mutateRetries = 8
)

// Entity provides generic CRUD over one JSON document type plus its secondary keys.
type Entity[T any] struct {
	db       *badger.DB
	prefix   string
	notFound error
	idOf     func(*T) string
	indexes  []uniqueIndex[T]
	lookups  []lookup[T]

	// mutateMu serializes in-process read-modify-write cycles so hot counters
	// do not spin on ErrConflict.
	mutateMu sync.Mutex
}

// uniqueIndex maps one value to exactly one id. Empty values are not indexed.
type uniqueIndex[T any] struct {
	name      string
	keyGen    func(*T) string
	transform func(string) string
}

// lookup maps one value to many ids, scanned by prefix.
type lookup[T any] struct {
	name   string
	keyGen func(*T) string
}

// NewEntity creates an Entity for documents stored under prefix.
func NewEntity[T any](db *badger.DB, prefix string, idOf func(*T) string, notFound error) *Entity[T] {
	return &Entity[T]{db: db, prefix: prefix, idOf: idOf, notFound: notFound}
}

// WithIndex adds a unique secondary index. transform, when set, is applied both when
// writing and when looking up, which makes email lookups case-insensitive.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) string, transform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, uniqueIndex[T]{name: name, keyGen: keyGen, transform: transform})
	return e
}

// WithLookup adds a non-unique secondary index used to list and delete children by parent.
func (e *Entity[T]) WithLookup(name string, keyGen func(*T) string) *Entity[T] {
	e.lookups = append(e.lookups, lookup[T]{name: name, keyGen: keyGen})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) uniqueKey(idx uniqueIndex[T], value string) []byte {
	if idx.transform != nil {
		value = idx.transform(value)
	}
	return []byte(e.prefix + uniqueSegment + idx.name + ":" + value)
}

func (e *Entity[T]) lookupPrefix(name, value string) []byte {
	return []byte(e.prefix + lookupSegment + name + ":" + value + ":")
}

func (e *Entity[T]) lookupKey(l lookup[T], entity *T) []byte {
	return append(e.lookupPrefix(l.name, l.keyGen(entity)), e.idOf(entity)...)
}

// Create stores a new document. It fails with store.ErrAlreadyExists when the id or
// any unique index value is taken.
func (e *Entity[T]) Create(ctx context.Context, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	return e.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(e.key(e.idOf(entity))); err == nil {
			return store.ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing key: %w", err)
		}

		if err := e.checkIndexes(txn, entity, nil); err != nil {
			return err
		}

		if err := txn.Set(e.key(e.idOf(entity)), data); err != nil {
			return fmt.Errorf("set key: %w", err)
		}
		return e.writeKeys(txn, entity)
	})
}

// Get loads a document by id.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetByIndex loads a document through a unique index.
func (e *Entity[T]) GetByIndex(ctx context.Context, name, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var idx *uniqueIndex[T]
	for i := range e.indexes {
		if e.indexes[i].name == name {
			idx = &e.indexes[i]
			break
		}
	}
	if idx == nil {
		return nil, fmt.Errorf("unknown index %q", name)
	}

	var entity *T
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.uniqueKey(*idx, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return e.notFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entity, err = e.read(txn, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Update replaces an existing document and moves its secondary keys.
func (e *Entity[T]) Update(ctx context.Context, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.Update(func(txn *badger.Txn) error {
		old, err := e.read(txn, e.idOf(entity))
		if err != nil {
			return err
		}
		return e.replace(txn, old, entity)
	})
}

// Mutate applies fn to the stored document inside one read-write transaction and
// persists the result. Concurrent writers to the same key are retried, so fn may run
// more than once and must only depend on its argument.
func (e *Entity[T]) Mutate(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	e.mutateMu.Lock()
	defer e.mutateMu.Unlock()

	var result *T
	var err error
	for range mutateRetries {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		err = e.db.Update(func(txn *badger.Txn) error {
			old, err := e.read(txn, id)
			if err != nil {
				return err
			}
			updated, err := e.read(txn, id)
			if err != nil {
				return err
			}
			if err := fn(updated); err != nil {
				return err
			}
			if err := e.replace(txn, old, updated); err != nil {
				return err
			}
			result = updated
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a document and its secondary keys. Deleting a missing id is a no-op.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.Update(func(txn *badger.Txn) error {
		entity, err := e.read(txn, id)
		if errors.Is(err, e.notFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return e.remove(txn, entity)
	})
}

// List returns every document of this type.
func (e *Entity[T]) List(ctx context.Context) ([]*T, error) {
	var out []*T
	prefix := []byte(e.prefix)

	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rest := string(it.Item().Key()[len(prefix):])
			if strings.HasPrefix(rest, uniqueSegment) || strings.HasPrefix(rest, lookupSegment) {
				continue
			}

			var entity T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entity)
			}); err != nil {
				return fmt.Errorf("unmarshal %s: %w", rest, err)
			}
			out = append(out, &entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListBy returns every document whose lookup value equals value.
func (e *Entity[T]) ListBy(ctx context.Context, name, value string) ([]*T, error) {
	ids, err := e.idsBy(ctx, name, value)
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(ids))
	err = e.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			entity, err := e.read(txn, id)
			if errors.Is(err, e.notFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBy removes every document whose lookup value equals value and reports how many.
func (e *Entity[T]) DeleteBy(ctx context.Context, name, value string) (int, error) {
	ids, err := e.idsBy(ctx, name, value)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(ids); start += deleteBatchSize {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		batch := ids[start:min(start+deleteBatchSize, len(ids))]
		err := e.db.Update(func(txn *badger.Txn) error {
			for _, id := range batch {
				entity, err := e.read(txn, id)
				if errors.Is(err, e.notFound) {
					continue
				}
				if err != nil {
					return err
				}
				if err := e.remove(txn, entity); err != nil {
					return err
				}
				deleted++
			}
			return nil
		})
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (e *Entity[T]) idsBy(ctx context.Context, name, value string) ([]string, error) {
	prefix := e.lookupPrefix(name, value)
	var ids []string

	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan lookup %s: %w", name, err)
	}
	return ids, nil
}

func (e *Entity[T]) read(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, e.notFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	return &entity, nil
}

// checkIndexes fails when a unique value of entity is held by another document.
// Values unchanged from old are skipped.
func (e *Entity[T]) checkIndexes(txn *badger.Txn, entity, old *T) error {
	for _, idx := range e.indexes {
		value := idx.keyGen(entity)
		if value == "" {
			continue
		}
		if old != nil && string(e.uniqueKey(idx, idx.keyGen(old))) == string(e.uniqueKey(idx, value)) {
			continue
		}
		_, err := txn.Get(e.uniqueKey(idx, value))
		if err == nil {
			return fmt.Errorf("index %s conflict: %w", idx.name, store.ErrAlreadyExists)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check index key: %w", err)
		}
	}
	return nil
}

func (e *Entity[T]) writeKeys(txn *badger.Txn, entity *T) error {
	id := []byte(e.idOf(entity))
	for _, idx := range e.indexes {
		if value := idx.keyGen(entity); value != "" {
			if err := txn.Set(e.uniqueKey(idx, value), id); err != nil {
				return fmt.Errorf("set index key: %w", err)
			}
		}
	}
	for _, l := range e.lookups {
		if err := txn.Set(e.lookupKey(l, entity), nil); err != nil {
			return fmt.Errorf("set lookup key: %w", err)
		}
	}
	return nil
}

func (e *Entity[T]) deleteKeys(txn *badger.Txn, entity *T) error {
	for _, idx := range e.indexes {
		if value := idx.keyGen(entity); value != "" {
			if err := txn.Delete(e.uniqueKey(idx, value)); err != nil {
				return fmt.Errorf("delete index key: %w", err)
			}
		}
	}
	for _, l := range e.lookups {
		if err := txn.Delete(e.lookupKey(l, entity)); err != nil {
			return fmt.Errorf("delete lookup key: %w", err)
		}
	}
	return nil
}

func (e *Entity[T]) replace(txn *badger.Txn, old, entity *T) error {
	if err := e.checkIndexes(txn, entity, old); err != nil {
		return err
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}
	if err := e.deleteKeys(txn, old); err != nil {
		return err
	}
	if err := txn.Set(e.key(e.idOf(entity)), data); err != nil {
		return fmt.Errorf("set key: %w", err)
	}
	return e.writeKeys(txn, entity)
}

func (e *Entity[T]) remove(txn *badger.Txn, entity *T) error {
	if err := e.deleteKeys(txn, entity); err != nil {
		return err
	}
	return txn.Delete(e.key(e.idOf(entity)))
}

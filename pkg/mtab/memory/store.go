// Package memory provides a synthetic in-memory mount table for tests and
// embedders.
//
// The store keeps its records in a copy-on-write slice behind an atomic
// pointer: mutators copy and swap under a mutex, walkers load the pointer
// and never lock. Each record carries its own reference count; a walk
// acquires the count strictly around the callback for that one record, so a
// concurrent Unmount can retire a record while a walk is inspecting its
// neighbor.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/marmos91/mntfs/pkg/mtab"
)

// DefaultCapacity bounds the number of live mounts a store accepts.
const DefaultCapacity = 4096

// Store is an in-memory mount table. It implements both mtab.Table and
// mtab.Resolver: the store is its own namespace.
type Store struct {
	nsID     uint64
	capacity int

	// records is the copy-on-write slice of live mounts, in mount order.
	records atomic.Pointer[[]*record]

	// mu serializes mutators only. Walkers never take it.
	mu sync.Mutex
}

// record is one mount plus its reference count. The table holds one
// reference for as long as the record is listed; walkers take a second one
// around each inspection. A count of zero means the record is dead and can
// no longer be acquired.
type record struct {
	id   uint64
	root *dir
	refs atomic.Int64
}

// tryRef acquires the record unless it is already dead.
func (r *record) tryRef() bool {
	for {
		refs := r.refs.Load()
		if refs <= 0 {
			return false
		}
		if r.refs.CompareAndSwap(refs, refs+1) {
			return true
		}
	}
}

func (r *record) unref() {
	r.refs.Add(-1)
}

// dir is a mount root whose path can be detached out from under callers,
// simulating the mount-removed-between-find-and-render race.
type dir struct {
	path     string
	detached atomic.Bool
}

func (d *dir) Path() (string, error) {
	if d.detached.Load() {
		return "", errors.New("mount detached from tree")
	}
	return d.path, nil
}

type namespace struct {
	id uint64
}

func (n namespace) ID() uint64 {
	return n.id
}

// Options configures a Store.
type Options struct {
	// NamespaceID is the identity the store reports for its namespace.
	NamespaceID uint64

	// Capacity bounds the number of live mounts. 0 selects DefaultCapacity.
	Capacity int
}

// NewStore builds an empty in-memory mount table.
func NewStore(opts Options) *Store {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	s := &Store{
		nsID:     opts.NamespaceID,
		capacity: capacity,
	}
	empty := make([]*record, 0)
	s.records.Store(&empty)
	return s
}

// Resolve returns the store's own namespace.
func (s *Store) Resolve(ctx context.Context) (mtab.Namespace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return namespace{id: s.nsID}, nil
}

// Walk yields every record live at the moment the walk started, in mount
// order. Records mounted after the walk begins are not seen this call;
// records unmounted mid-walk are skipped from the point they die. Each
// record is acquired strictly around its callback.
func (s *Store) Walk(ctx context.Context, ns mtab.Namespace, fn func(mtab.Record) bool) error {
	records := *s.records.Load()

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !rec.tryRef() {
			continue
		}
		keep := fn(mtab.Record{ID: rec.id, Root: rec.root})
		rec.unref()
		if !keep {
			return nil
		}
	}
	return nil
}

// Mount adds a live mount with the given id and root path.
//
// Fails with ErrExhausted when the store is at capacity, and with a plain
// error when the id is already live: providers never reuse an id for two
// mounts alive at the same time.
func (s *Store) Mount(id uint64, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := *s.records.Load()
	if len(records) >= s.capacity {
		return &mtab.Error{
			Code:    mtab.ErrExhausted,
			Message: fmt.Sprintf("mount table full (%d mounts)", s.capacity),
		}
	}
	for _, rec := range records {
		if rec.id == id {
			return fmt.Errorf("mount id %d already live", id)
		}
	}

	rec := &record{id: id, root: &dir{path: path}}
	rec.refs.Store(1)

	next := make([]*record, len(records), len(records)+1)
	copy(next, records)
	next = append(next, rec)
	s.records.Store(&next)
	return nil
}

// Unmount removes the mount with the given id. In-flight walkers that
// already acquired the record finish their inspection; everyone else stops
// seeing it immediately.
func (s *Store) Unmount(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := *s.records.Load()
	next := make([]*record, 0, len(records))
	var removed *record
	for _, rec := range records {
		if rec.id == id && removed == nil {
			removed = rec
			continue
		}
		next = append(next, rec)
	}
	if removed == nil {
		return false
	}

	s.records.Store(&next)
	removed.unref()
	return true
}

// Detach keeps the mount enumerable but makes its root path unrenderable,
// reproducing the window where a mount is still listed while already
// removed from the tree.
func (s *Store) Detach(id uint64) bool {
	for _, rec := range *s.records.Load() {
		if rec.id == id {
			rec.root.detached.Store(true)
			return true
		}
	}
	return false
}

// Len reports the number of live mounts.
func (s *Store) Len() int {
	return len(*s.records.Load())
}

// IDs returns the live mount ids in mount order.
func (s *Store) IDs() []uint64 {
	records := *s.records.Load()
	ids := make([]uint64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.id)
	}
	return ids
}

// String describes the store for logs.
func (s *Store) String() string {
	return "memory[ns=" + strconv.FormatUint(s.nsID, 10) + "]"
}

package mtab

import (
	"context"
	"fmt"
	"strconv"

	"github.com/marmos91/mntfs/internal/logger"
)

// Options configures a View.
type Options struct {
	// IDOffset is the distance between mount ids and entry identifiers.
	// 0 selects DefaultIDOffset. Must exceed the reserved identifier
	// range.
	IDOffset uint64

	// NameMax is the maximum accepted entry name length in bytes.
	// 0 selects DefaultNameMax.
	NameMax int
}

// DefaultNameMax is the maximum entry name length accepted by lookups.
const DefaultNameMax = 255

// View exposes a live mount table with filesystem semantics: lookup by
// name, cursor-based directory listing, and symlink resolution. Every
// operation resolves the caller's namespace and re-reads the table; nothing
// is memoized between calls.
type View struct {
	resolver Resolver
	table    Table
	ids      IDMap
	nameMax  int
}

// New builds a View over the given namespace resolver and mount table.
func New(resolver Resolver, table Table, opts Options) (*View, error) {
	if resolver == nil {
		return nil, fmt.Errorf("nil namespace resolver")
	}
	if table == nil {
		return nil, fmt.Errorf("nil mount table")
	}

	ids, err := NewIDMap(opts.IDOffset)
	if err != nil {
		return nil, err
	}

	nameMax := opts.NameMax
	if nameMax == 0 {
		nameMax = DefaultNameMax
	}
	if nameMax < 0 {
		return nil, fmt.Errorf("name max %d must be positive", nameMax)
	}

	return &View{
		resolver: resolver,
		table:    table,
		ids:      ids,
		nameMax:  nameMax,
	}, nil
}

// IDs returns the identifier mapping in use.
func (v *View) IDs() IDMap {
	return v.ids
}

// NameMax returns the maximum accepted entry name length.
func (v *View) NameMax() int {
	return v.nameMax
}

// Root returns the root directory entry.
func (v *View) Root() Entry {
	return Entry{
		ID:       RootID,
		Kind:     KindDirectory,
		NoRetain: true,
	}
}

// Kind reports the entry variant an identifier denotes. The root identifier
// is the directory; every other identifier presents as a mount link,
// whether or not a live mount currently backs it. Liveness is a property of
// lookup and readlink, not of identity.
func (v *View) Kind(entryID uint64) Kind {
	if entryID == RootID {
		return KindDirectory
	}
	return KindSymlink
}

// Lookup resolves an entry name in the root directory.
//
// Validation order matters and is part of the contract:
//  1. names longer than NameMax fail with ErrNameTooLong before any
//     parsing;
//  2. "0", names with a leading zero, and names that are not base-10
//     non-negative integers fail with ErrNotFound; there is one canonical
//     decimal spelling per id and every other spelling is rejected;
//  3. a parsed candidate is then matched against the live table; first
//     match wins, no match fails with ErrNotFound.
//
// The returned entry is marked NoRetain: it reflects the table at this
// instant only.
func (v *View) Lookup(ctx context.Context, name string) (Entry, error) {
	if len(name) > v.nameMax {
		return Entry{}, &Error{
			Code:    ErrNameTooLong,
			Message: "entry name exceeds limit",
			Name:    name,
		}
	}

	mountID, ok := parseCanonicalID(name)
	if !ok || !v.ids.Valid(mountID) {
		return Entry{}, &Error{
			Code:    ErrNotFound,
			Message: "no such entry",
			Name:    name,
		}
	}

	rec, found, err := v.findMount(ctx, mountID)
	if err != nil {
		return Entry{}, err
	}
	if !found {
		logger.Debug("lookup: no live mount with id %d", mountID)
		return Entry{}, &Error{
			Code:    ErrNotFound,
			Message: "no such entry",
			Name:    name,
		}
	}

	return Entry{
		ID:       v.ids.EntryID(rec.ID),
		Name:     name,
		Kind:     KindSymlink,
		NoRetain: true,
	}, nil
}

// ReadDir lists the root directory from the given cursor.
//
// The cursor starts at 0 and is held by the caller across calls; each
// emitted entry carries the cursor value that resumes immediately after it.
// Every call re-enumerates the table from scratch: the walk counts records
// with a local zero-based counter and emits those at positions >= cursor.
// If a mount earlier than the cursor is removed between two calls the
// positions shift, and an entry may be skipped or repeated; listings that
// span multiple calls do not observe one consistent snapshot.
//
// Returns eof true when the enumeration was exhausted, false when emit
// declined further entries.
func (v *View) ReadDir(ctx context.Context, cursor uint64, emit func(DirEntry) bool) (bool, error) {
	ns, err := v.resolve(ctx)
	if err != nil {
		return false, err
	}

	eof := true
	var i uint64

	err = v.table.Walk(ctx, ns, func(rec Record) bool {
		// An id that would wrap the entry mapping has no addressable
		// entry; it is invisible rather than misfiled.
		if !v.ids.Valid(rec.ID) {
			return true
		}
		if i < cursor {
			i++
			return true
		}

		entry := DirEntry{
			Entry: Entry{
				ID:       v.ids.EntryID(rec.ID),
				Name:     strconv.FormatUint(rec.ID, 10),
				Kind:     KindSymlink,
				NoRetain: true,
			},
			NextCursor: i + 1,
		}
		i++

		if !emit(entry) {
			eof = false
			return false
		}
		return true
	})
	if err != nil {
		return false, err
	}

	return eof, nil
}

// ReadLink resolves a mount link to the mount root's absolute path.
//
// The identifier is never trusted blindly: the candidate mount id is
// recovered from it and re-matched against the live table, because the
// identifier alone does not prove the mount still exists. A mount that
// vanished after being listed, or that detaches between the match and the
// path render, fails with ErrNotFound exactly like a name that never
// existed.
func (v *View) ReadLink(ctx context.Context, entryID uint64) (string, error) {
	rec, err := v.findLink(ctx, entryID)
	if err != nil {
		return "", err
	}

	path, err := rec.Root.Path()
	if err != nil {
		logger.Debug("readlink: render failed for mount %d: %v", rec.ID, err)
		return "", &Error{
			Code:    ErrNotFound,
			Message: "no such entry",
		}
	}

	return path, nil
}

// Follow resolves a mount link for traversal, returning the live root
// directory handle instead of a rendered path. Used when the link is
// crossed as part of a longer path walk rather than read directly.
func (v *View) Follow(ctx context.Context, entryID uint64) (Dir, error) {
	rec, err := v.findLink(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return rec.Root, nil
}

// MountCount reports the number of live mounts at this instant.
func (v *View) MountCount(ctx context.Context) (uint64, error) {
	ns, err := v.resolve(ctx)
	if err != nil {
		return 0, err
	}

	var n uint64
	err = v.table.Walk(ctx, ns, func(rec Record) bool {
		if v.ids.Valid(rec.ID) {
			n++
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// findLink recovers the mount behind a link identifier, re-validating
// against the live table.
func (v *View) findLink(ctx context.Context, entryID uint64) (Record, error) {
	mountID, ok := v.ids.MountID(entryID)
	if !ok {
		return Record{}, &Error{
			Code:    ErrNotFound,
			Message: fmt.Sprintf("entry %d is not a mount link", entryID),
		}
	}

	rec, found, err := v.findMount(ctx, mountID)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, &Error{
			Code:    ErrNotFound,
			Message: fmt.Sprintf("no live mount with id %d", mountID),
		}
	}
	return rec, nil
}

// findMount scans the live enumeration for the first record carrying the
// candidate id. Ids are expected unique within a namespace; if a provider
// ever yields duplicates, first seen wins.
func (v *View) findMount(ctx context.Context, mountID uint64) (Record, bool, error) {
	ns, err := v.resolve(ctx)
	if err != nil {
		return Record{}, false, err
	}

	var (
		match Record
		found bool
	)
	err = v.table.Walk(ctx, ns, func(rec Record) bool {
		if rec.ID == mountID {
			match = rec
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return Record{}, false, err
	}
	return match, found, nil
}

func (v *View) resolve(ctx context.Context) (Namespace, error) {
	ns, err := v.resolver.Resolve(ctx)
	if err != nil {
		logger.Debug("namespace resolution failed: %v", err)
		return nil, err
	}
	return ns, nil
}

// parseCanonicalID parses the one accepted decimal spelling of a mount id.
// "0" is never addressable by name, and a leading zero on a longer name is
// rejected even though it would parse numerically.
func parseCanonicalID(name string) (uint64, bool) {
	if name == "0" {
		return 0, false
	}
	if len(name) > 1 && name[0] == '0' {
		return 0, false
	}
	id, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

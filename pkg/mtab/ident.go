package mtab

import (
	"fmt"
	"math"
)

// RootID is the entry identifier reserved for the root directory. It is the
// only reserved identifier in the filesystem.
const RootID uint64 = 1

// DefaultIDOffset is the default distance between a mount id and its entry
// identifier. 1000 keeps entry identifiers well clear of the reserved range
// and matches the canonical id scheme this filesystem has always exposed.
const DefaultIDOffset uint64 = 1000

// maxReservedID is the highest identifier the reserved set can take. Any
// valid offset must exceed it so the two identifier ranges cannot collide.
const maxReservedID = RootID

// IDMap converts mount ids to filesystem entry identifiers and back.
//
// The mapping is a pure bijection: entry = mount + offset. The reverse
// direction exists only so listing and readlink can recover a candidate
// mount id from an entry identifier; it is never exposed as filesystem
// state.
type IDMap struct {
	offset uint64
}

// NewIDMap builds an IDMap with the given offset.
//
// The offset must exceed every reserved identifier, otherwise a mount's
// entry identifier could collide with the root directory's. An offset of 0
// selects DefaultIDOffset.
func NewIDMap(offset uint64) (IDMap, error) {
	if offset == 0 {
		offset = DefaultIDOffset
	}
	if offset <= maxReservedID {
		return IDMap{}, fmt.Errorf("id offset %d must exceed the reserved identifier range (max %d)", offset, maxReservedID)
	}
	return IDMap{offset: offset}, nil
}

// EntryID returns the entry identifier for a mount id. Callers check Valid
// first; an id past the mappable range would wrap back into the reserved
// range.
func (m IDMap) EntryID(mountID uint64) uint64 {
	return mountID + m.offset
}

// Valid reports whether a mount id maps to an entry identifier without
// wrapping. Procfs ids are small positive integers and always pass, but a
// synthetic table can hold ids near the top of the range.
func (m IDMap) Valid(mountID uint64) bool {
	return mountID <= math.MaxUint64-m.offset
}

// MountID recovers the mount id behind an entry identifier. The second
// return is false when the identifier lies in the reserved range and
// therefore cannot denote a mount.
func (m IDMap) MountID(entryID uint64) (uint64, bool) {
	if entryID < m.offset {
		return 0, false
	}
	return entryID - m.offset, true
}

// Offset returns the configured offset.
func (m IDMap) Offset() uint64 {
	return m.offset
}

package nfs

import (
	"encoding/binary"
	"fmt"
)

// EncodeHandle renders an entry identifier as a file handle.
func EncodeHandle(entryID uint64) []byte {
	handle := make([]byte, HandleSize)
	binary.BigEndian.PutUint64(handle, entryID)
	return handle
}

// DecodeHandle recovers the entry identifier from a file handle.
//
// Handles of any length other than HandleSize were never issued by this
// server; they fail decoding and the caller replies BADHANDLE.
func DecodeHandle(handle []byte) (uint64, error) {
	if len(handle) != HandleSize {
		return 0, fmt.Errorf("bad handle length %d, want %d", len(handle), HandleSize)
	}
	return binary.BigEndian.Uint64(handle), nil
}

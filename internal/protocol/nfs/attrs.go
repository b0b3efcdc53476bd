package nfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// FSID identifies this filesystem in every fattr3 it synthesizes.
const FSID = 0x6d6e7466

// TimeVal is an NFS v3 nfstime3.
type TimeVal struct {
	Seconds  uint32
	Nseconds uint32
}

// FileAttr is an NFS v3 fattr3.
type FileAttr struct {
	Type   uint32
	Mode   uint32
	Nlink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Used   uint64
	Rdev   [2]uint32
	FSID   uint64
	Fileid uint64
	Atime  TimeVal
	Mtime  TimeVal
	Ctime  TimeVal
}

// RootAttr synthesizes the root directory's attributes.
//
// Timestamps are the current instant on every call. The directory's contents
// track the live mount table, so any fixed timestamp would let clients cache
// a listing past a mount or unmount.
func RootAttr(fileid uint64) *FileAttr {
	return synthesize(NF3Dir, 0o555, 2, fileid)
}

// SymlinkAttr synthesizes a mount link's attributes.
func SymlinkAttr(fileid uint64) *FileAttr {
	return synthesize(NF3Lnk, 0o777, 1, fileid)
}

func synthesize(ftype, mode, nlink uint32, fileid uint64) *FileAttr {
	now := time.Now()
	ts := TimeVal{
		Seconds:  uint32(now.Unix()),
		Nseconds: uint32(now.Nanosecond()),
	}

	return &FileAttr{
		Type:   ftype,
		Mode:   mode,
		Nlink:  nlink,
		FSID:   FSID,
		Fileid: fileid,
		Atime:  ts,
		Mtime:  ts,
		Ctime:  ts,
	}
}

func encodeFileAttr(buf *bytes.Buffer, attr *FileAttr) error {
	fields := []any{
		attr.Type,
		attr.Mode,
		attr.Nlink,
		attr.UID,
		attr.GID,
		attr.Size,
		attr.Used,
		attr.Rdev[0],
		attr.Rdev[1],
		attr.FSID,
		attr.Fileid,
		attr.Atime.Seconds,
		attr.Atime.Nseconds,
		attr.Mtime.Seconds,
		attr.Mtime.Nseconds,
		attr.Ctime.Seconds,
		attr.Ctime.Nseconds,
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.BigEndian, f); err != nil {
			return fmt.Errorf("write fattr3: %w", err)
		}
	}
	return nil
}

// encodePostOpAttr writes a post_op_attr: a presence flag followed by the
// attributes when present.
func encodePostOpAttr(buf *bytes.Buffer, attr *FileAttr) error {
	if attr == nil {
		return binary.Write(buf, binary.BigEndian, uint32(0))
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(1)); err != nil {
		return err
	}
	return encodeFileAttr(buf, attr)
}

package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/pkg/mtab"
)

// Directory cookie layout. Cookie 0 starts a listing; "." and ".." carry
// the two reserved cookies; a mount entry at zero-based table position i
// carries cookie i+3. The verifier is constant: the table has no stable
// snapshot to verify against, and concurrent mutation yields skipped or
// repeated names rather than a BADCOOKIE error.
const (
	cookieStart  = 0
	cookieDot    = 1
	cookieDotDot = 2
	cookieBias   = 3
)

// DirEntry is one entry in a READDIR response.
type DirEntry struct {
	Fileid uint64
	Name   string
	Cookie uint64
}

// ReadDirRequest represents a READDIR request
type ReadDirRequest struct {
	DirHandle  []byte
	Cookie     uint64
	CookieVerf uint64
	Count      uint32
}

// ReadDirResponse represents a READDIR response
type ReadDirResponse struct {
	Status     uint32
	DirAttr    *FileAttr // post-op attributes (optional)
	CookieVerf uint64
	Entries    []*DirEntry
	Eof        bool
}

// readdirOverhead approximates the fixed response cost per RFC 1813: status,
// attributes, verifier and the list terminator.
const readdirOverhead = 104

// entryOverhead is the per-entry wire cost excluding the name bytes.
const entryOverhead = 24

// ReadDir lists the root directory.
// RFC 1813 Section 3.3.16
func (h *Handler) ReadDir(ctx context.Context, req *ReadDirRequest) (*ReadDirResponse, error) {
	logger.Debug("READDIR for directory %x, cookie=%d, count=%d", req.DirHandle, req.Cookie, req.Count)

	dirID, err := DecodeHandle(req.DirHandle)
	if err != nil {
		logger.Warn("READDIR with malformed handle: %v", err)
		return &ReadDirResponse{Status: NFS3ErrBadHandle}, nil
	}

	if h.view.Kind(dirID) != mtab.KindDirectory {
		return &ReadDirResponse{Status: NFS3ErrNotDir}, nil
	}

	budget := int(req.Count)
	if budget == 0 {
		budget = DirTransfer
	}
	used := readdirOverhead

	entries := make([]*DirEntry, 0)
	full := true
	appendEntry := func(e *DirEntry) bool {
		cost := entryOverhead + len(e.Name) + (4-len(e.Name)%4)%4
		if used+cost > budget && len(entries) > 0 {
			full = false
			return false
		}
		used += cost
		entries = append(entries, e)
		return true
	}

	if req.Cookie == cookieStart {
		appendEntry(&DirEntry{Fileid: dirID, Name: ".", Cookie: cookieDot})
	}
	if req.Cookie <= cookieDot {
		appendEntry(&DirEntry{Fileid: dirID, Name: "..", Cookie: cookieDotDot})
	}

	cursor := uint64(0)
	if req.Cookie >= cookieBias {
		cursor = req.Cookie - cookieBias + 1
	}

	var mountsSeen uint64
	eof, err := h.view.ReadDir(ctx, cursor, func(de mtab.DirEntry) bool {
		if full && appendEntry(&DirEntry{
			Fileid: de.ID,
			Name:   de.Name,
			Cookie: de.NextCursor - 1 + cookieBias,
		}) {
			mountsSeen++
			return true
		}
		return false
	})
	if err != nil {
		status := StatusFromError(err)
		logger.Debug("READDIR failed: %s", StatusString(status))
		return &ReadDirResponse{Status: status}, nil
	}

	eof = eof && full

	if req.Cookie == cookieStart && eof {
		h.metrics.SetMountsVisible(mountsSeen)
	}

	logger.Debug("READDIR returning %d entries (eof=%v)", len(entries), eof)

	return &ReadDirResponse{
		Status:     NFS3OK,
		DirAttr:    RootAttr(dirID),
		CookieVerf: 0,
		Entries:    entries,
		Eof:        eof,
	}, nil
}

func DecodeReadDirRequest(data []byte) (*ReadDirRequest, error) {
	reader := bytes.NewReader(data)

	dirHandle, err := readOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read directory handle: %w", err)
	}

	var cookie uint64
	if err := binary.Read(reader, binary.BigEndian, &cookie); err != nil {
		return nil, fmt.Errorf("read cookie: %w", err)
	}

	var cookieVerf uint64
	if err := binary.Read(reader, binary.BigEndian, &cookieVerf); err != nil {
		return nil, fmt.Errorf("read cookieverf: %w", err)
	}

	var count uint32
	if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	return &ReadDirRequest{
		DirHandle:  dirHandle,
		Cookie:     cookie,
		CookieVerf: cookieVerf,
		Count:      count,
	}, nil
}

func (resp *ReadDirResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}

	if resp.Status != NFS3OK {
		if err := encodePostOpAttr(&buf, resp.DirAttr); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	if err := encodePostOpAttr(&buf, resp.DirAttr); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, resp.CookieVerf); err != nil {
		return nil, err
	}

	for _, entry := range resp.Entries {
		if err := binary.Write(&buf, binary.BigEndian, uint32(1)); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, entry.Fileid); err != nil {
			return nil, err
		}
		if err := writeString(&buf, entry.Name); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, entry.Cookie); err != nil {
			return nil, err
		}
	}

	// value_follows = FALSE terminates the list
	if err := binary.Write(&buf, binary.BigEndian, uint32(0)); err != nil {
		return nil, err
	}

	eofVal := uint32(0)
	if resp.Eof {
		eofVal = 1
	}
	if err := binary.Write(&buf, binary.BigEndian, eofVal); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/pkg/mtab"
)

// DirEntryPlus is one entry in a READDIRPLUS response.
type DirEntryPlus struct {
	Fileid uint64
	Name   string
	Cookie uint64
	Attr   *FileAttr
	Handle []byte
}

// ReadDirPlusRequest represents a READDIRPLUS request
type ReadDirPlusRequest struct {
	DirHandle  []byte
	Cookie     uint64
	CookieVerf uint64
	DirCount   uint32
	MaxCount   uint32
}

// ReadDirPlusResponse represents a READDIRPLUS response
type ReadDirPlusResponse struct {
	Status     uint32
	DirAttr    *FileAttr // post-op attributes (optional)
	CookieVerf uint64
	Entries    []*DirEntryPlus
	Eof        bool
}

// entryPlusOverhead is the per-entry wire cost excluding the name bytes:
// fattr3, handle and the fixed fields.
const entryPlusOverhead = 140

// ReadDirPlus lists the root directory with attributes and handles.
// RFC 1813 Section 3.3.17
//
// Cookie layout is shared with READDIR.
func (h *Handler) ReadDirPlus(ctx context.Context, req *ReadDirPlusRequest) (*ReadDirPlusResponse, error) {
	logger.Debug("READDIRPLUS for directory %x, cookie=%d, maxcount=%d", req.DirHandle, req.Cookie, req.MaxCount)

	dirID, err := DecodeHandle(req.DirHandle)
	if err != nil {
		logger.Warn("READDIRPLUS with malformed handle: %v", err)
		return &ReadDirPlusResponse{Status: NFS3ErrBadHandle}, nil
	}

	if h.view.Kind(dirID) != mtab.KindDirectory {
		return &ReadDirPlusResponse{Status: NFS3ErrNotDir}, nil
	}

	budget := int(req.MaxCount)
	if budget == 0 {
		budget = DirTransfer
	}
	used := readdirOverhead

	entries := make([]*DirEntryPlus, 0)
	full := true
	appendEntry := func(e *DirEntryPlus) bool {
		cost := entryPlusOverhead + len(e.Name) + (4-len(e.Name)%4)%4
		if used+cost > budget && len(entries) > 0 {
			full = false
			return false
		}
		used += cost
		entries = append(entries, e)
		return true
	}

	if req.Cookie == cookieStart {
		appendEntry(&DirEntryPlus{
			Fileid: dirID,
			Name:   ".",
			Cookie: cookieDot,
			Attr:   RootAttr(dirID),
			Handle: EncodeHandle(dirID),
		})
	}
	if req.Cookie <= cookieDot {
		appendEntry(&DirEntryPlus{
			Fileid: dirID,
			Name:   "..",
			Cookie: cookieDotDot,
			Attr:   RootAttr(dirID),
			Handle: EncodeHandle(dirID),
		})
	}

	cursor := uint64(0)
	if req.Cookie >= cookieBias {
		cursor = req.Cookie - cookieBias + 1
	}

	var mountsSeen uint64
	eof, err := h.view.ReadDir(ctx, cursor, func(de mtab.DirEntry) bool {
		if full && appendEntry(&DirEntryPlus{
			Fileid: de.ID,
			Name:   de.Name,
			Cookie: de.NextCursor - 1 + cookieBias,
			Attr:   SymlinkAttr(de.ID),
			Handle: EncodeHandle(de.ID),
		}) {
			mountsSeen++
			return true
		}
		return false
	})
	if err != nil {
		status := StatusFromError(err)
		logger.Debug("READDIRPLUS failed: %s", StatusString(status))
		return &ReadDirPlusResponse{Status: status}, nil
	}

	eof = eof && full

	if req.Cookie == cookieStart && eof {
		h.metrics.SetMountsVisible(mountsSeen)
	}

	logger.Debug("READDIRPLUS returning %d entries (eof=%v)", len(entries), eof)

	return &ReadDirPlusResponse{
		Status:     NFS3OK,
		DirAttr:    RootAttr(dirID),
		CookieVerf: 0,
		Entries:    entries,
		Eof:        eof,
	}, nil
}

func DecodeReadDirPlusRequest(data []byte) (*ReadDirPlusRequest, error) {
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

	var dirCount uint32
	if err := binary.Read(reader, binary.BigEndian, &dirCount); err != nil {
		return nil, fmt.Errorf("read dircount: %w", err)
	}

	var maxCount uint32
	if err := binary.Read(reader, binary.BigEndian, &maxCount); err != nil {
		return nil, fmt.Errorf("read maxcount: %w", err)
	}

	return &ReadDirPlusRequest{
		DirHandle:  dirHandle,
		Cookie:     cookie,
		CookieVerf: cookieVerf,
		DirCount:   dirCount,
		MaxCount:   maxCount,
	}, nil
}

func (resp *ReadDirPlusResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}

	if err := encodePostOpAttr(&buf, resp.DirAttr); err != nil {
		return nil, err
	}

	if resp.Status != NFS3OK {
		return buf.Bytes(), nil
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
		if err := encodePostOpAttr(&buf, entry.Attr); err != nil {
			return nil, err
		}
		// post_op_fh3
		if entry.Handle != nil {
			if err := binary.Write(&buf, binary.BigEndian, uint32(1)); err != nil {
				return nil, err
			}
			if err := writeOpaque(&buf, entry.Handle); err != nil {
				return nil, err
			}
		} else {
			if err := binary.Write(&buf, binary.BigEndian, uint32(0)); err != nil {
				return nil, err
			}
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

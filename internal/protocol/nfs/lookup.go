package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/pkg/mtab"
)

// LookupRequest represents a LOOKUP request
type LookupRequest struct {
	DirHandle []byte
	Filename  string
}

// LookupResponse represents a LOOKUP response
type LookupResponse struct {
	Status     uint32
	FileHandle []byte    // only present if Status == NFS3OK
	Attr       *FileAttr // only present if Status == NFS3OK
	DirAttr    *FileAttr // post-op attributes for directory (optional)
}

// Lookup resolves a name in the root directory to a mount link handle.
// RFC 1813 Section 3.3.3
func (h *Handler) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	logger.Debug("LOOKUP for '%s' in directory %x", req.Filename, req.DirHandle)

	dirID, err := DecodeHandle(req.DirHandle)
	if err != nil {
		logger.Warn("LOOKUP with malformed directory handle: %v", err)
		return &LookupResponse{Status: NFS3ErrBadHandle}, nil
	}

	if h.view.Kind(dirID) != mtab.KindDirectory {
		return &LookupResponse{Status: NFS3ErrNotDir}, nil
	}

	dirAttr := RootAttr(dirID)

	entry, err := h.lookupEntry(ctx, dirID, req.Filename)
	if err != nil {
		status := StatusFromError(err)
		logger.Debug("LOOKUP '%s' failed: %s", req.Filename, StatusString(status))
		return &LookupResponse{
			Status:  status,
			DirAttr: dirAttr,
		}, nil
	}

	return &LookupResponse{
		Status:     NFS3OK,
		FileHandle: EncodeHandle(entry.ID),
		Attr:       SymlinkAttr(entry.ID),
		DirAttr:    dirAttr,
	}, nil
}

// lookupEntry consults the entry cache before the view. Entries the view
// synthesizes carry the no-retain hint, so admission declines them and the
// cache never answers for a mount that may since have vanished.
func (h *Handler) lookupEntry(ctx context.Context, dirID uint64, name string) (mtab.Entry, error) {
	if h.cache != nil {
		if entry, ok := h.cache.Get(dirID, name); ok {
			h.metrics.RecordEntryCacheLookup(true)
			return entry, nil
		}
		h.metrics.RecordEntryCacheLookup(false)
	}

	entry, err := h.view.Lookup(ctx, name)
	if err != nil {
		return mtab.Entry{}, err
	}

	if h.cache != nil {
		h.cache.Put(dirID, name, entry)
	}
	return entry, nil
}

func DecodeLookupRequest(data []byte) (*LookupRequest, error) {
	reader := bytes.NewReader(data)

	dirHandle, err := readOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read directory handle: %w", err)
	}

	filename, err := readString(reader)
	if err != nil {
		return nil, fmt.Errorf("read filename: %w", err)
	}

	return &LookupRequest{
		DirHandle: dirHandle,
		Filename:  filename,
	}, nil
}

func (resp *LookupResponse) Encode() ([]byte, error) {
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

	if err := writeOpaque(&buf, resp.FileHandle); err != nil {
		return nil, fmt.Errorf("write file handle: %w", err)
	}
	if err := encodePostOpAttr(&buf, resp.Attr); err != nil {
		return nil, err
	}
	if err := encodePostOpAttr(&buf, resp.DirAttr); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

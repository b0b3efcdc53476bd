package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/pkg/mtab"
)

// ReadLinkRequest represents a READLINK request
type ReadLinkRequest struct {
	Handle []byte
}

// ReadLinkResponse represents a READLINK response
type ReadLinkResponse struct {
	Status uint32
	Attr   *FileAttr // post-op attributes (optional)
	Target string    // only present if Status == NFS3OK
}

// ReadLink resolves a mount link to its target path.
// RFC 1813 Section 3.3.5
//
// The mount is re-matched against the live table on every call. A link
// whose mount vanished after it was listed answers NOENT, identical to a
// name that never existed.
func (h *Handler) ReadLink(ctx context.Context, req *ReadLinkRequest) (*ReadLinkResponse, error) {
	logger.Debug("READLINK for handle %x", req.Handle)

	entryID, err := DecodeHandle(req.Handle)
	if err != nil {
		logger.Warn("READLINK with malformed handle: %v", err)
		return &ReadLinkResponse{Status: NFS3ErrBadHandle}, nil
	}

	if h.view.Kind(entryID) != mtab.KindSymlink {
		return &ReadLinkResponse{Status: NFS3ErrInval}, nil
	}

	target, err := h.view.ReadLink(ctx, entryID)
	if err != nil {
		status := StatusFromError(err)
		logger.Debug("READLINK for entry %d failed: %s", entryID, StatusString(status))
		return &ReadLinkResponse{Status: status}, nil
	}

	return &ReadLinkResponse{
		Status: NFS3OK,
		Attr:   SymlinkAttr(entryID),
		Target: target,
	}, nil
}

func DecodeReadLinkRequest(data []byte) (*ReadLinkRequest, error) {
	reader := bytes.NewReader(data)

	handle, err := readOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}

	return &ReadLinkRequest{Handle: handle}, nil
}

func (resp *ReadLinkResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}

	if err := encodePostOpAttr(&buf, resp.Attr); err != nil {
		return nil, err
	}

	if resp.Status != NFS3OK {
		return buf.Bytes(), nil
	}

	if err := writeString(&buf, resp.Target); err != nil {
		return nil, fmt.Errorf("write target: %w", err)
	}

	return buf.Bytes(), nil
}

package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/pkg/mtab"
)

// AccessRequest represents an ACCESS request
type AccessRequest struct {
	Handle []byte
	Access uint32
}

// AccessResponse represents an ACCESS response
type AccessResponse struct {
	Status uint32
	Attr   *FileAttr // post-op attributes (optional)
	Access uint32    // only present if Status == NFS3OK
}

// Access reports the caller's permitted operations on a handle.
// RFC 1813 Section 3.3.4
//
// Everyone gets the same answer: read and lookup on the directory, read on
// a link, never any modify class bit.
func (h *Handler) Access(_ context.Context, req *AccessRequest) (*AccessResponse, error) {
	logger.Debug("ACCESS for handle %x, requested 0x%x", req.Handle, req.Access)

	entryID, err := DecodeHandle(req.Handle)
	if err != nil {
		logger.Warn("ACCESS with malformed handle: %v", err)
		return &AccessResponse{Status: NFS3ErrBadHandle}, nil
	}

	var allowed uint32
	if h.view.Kind(entryID) == mtab.KindDirectory {
		allowed = AccessRead | AccessLookup | AccessExecute
	} else {
		allowed = AccessRead
	}

	return &AccessResponse{
		Status: NFS3OK,
		Attr:   h.attrForEntry(entryID),
		Access: req.Access & allowed,
	}, nil
}

func DecodeAccessRequest(data []byte) (*AccessRequest, error) {
	reader := bytes.NewReader(data)

	handle, err := readOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}

	var access uint32
	if err := binary.Read(reader, binary.BigEndian, &access); err != nil {
		return nil, fmt.Errorf("read access mask: %w", err)
	}

	return &AccessRequest{Handle: handle, Access: access}, nil
}

func (resp *AccessResponse) Encode() ([]byte, error) {
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

	if err := binary.Write(&buf, binary.BigEndian, resp.Access); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

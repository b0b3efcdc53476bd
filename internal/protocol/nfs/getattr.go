package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
)

// GetAttrRequest represents a GETATTR request
type GetAttrRequest struct {
	Handle []byte
}

// GetAttrResponse represents a GETATTR response
type GetAttrResponse struct {
	Status uint32
	Attr   *FileAttr // only present if Status == NFS3OK
}

// GetAttr returns the attributes of a file handle.
// RFC 1813 Section 3.3.1
//
// Attributes are pure identity: any well-formed handle gets attributes,
// whether or not a live mount currently backs it. Liveness is checked by
// LOOKUP and READLINK, not here.
func (h *Handler) GetAttr(_ context.Context, req *GetAttrRequest) (*GetAttrResponse, error) {
	logger.Debug("GETATTR for handle %x", req.Handle)

	entryID, err := DecodeHandle(req.Handle)
	if err != nil {
		logger.Warn("GETATTR with malformed handle: %v", err)
		return &GetAttrResponse{Status: NFS3ErrBadHandle}, nil
	}

	return &GetAttrResponse{
		Status: NFS3OK,
		Attr:   h.attrForEntry(entryID),
	}, nil
}

func DecodeGetAttrRequest(data []byte) (*GetAttrRequest, error) {
	reader := bytes.NewReader(data)

	handle, err := readOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}

	return &GetAttrRequest{Handle: handle}, nil
}

func (resp *GetAttrResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}

	if resp.Status != NFS3OK {
		return buf.Bytes(), nil
	}

	if err := encodeFileAttr(&buf, resp.Attr); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

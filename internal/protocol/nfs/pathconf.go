package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
)

// PathConfRequest represents a PATHCONF request
type PathConfRequest struct {
	Handle []byte
}

// PathConfResponse represents a PATHCONF response
type PathConfResponse struct {
	Status          uint32
	Attr            *FileAttr // post-op attributes (optional)
	LinkMax         uint32
	NameMax         uint32
	NoTrunc         bool
	ChownRestricted bool
	CaseInsensitive bool
	CasePreserving  bool
}

// PathConf reports pathname limits.
// RFC 1813 Section 3.3.20
//
// NameMax comes from the view so the advertised limit and the lookup
// rejection threshold cannot drift apart.
func (h *Handler) PathConf(_ context.Context, req *PathConfRequest) (*PathConfResponse, error) {
	logger.Debug("PATHCONF for handle %x", req.Handle)

	entryID, err := DecodeHandle(req.Handle)
	if err != nil {
		logger.Warn("PATHCONF with malformed handle: %v", err)
		return &PathConfResponse{Status: NFS3ErrBadHandle}, nil
	}

	return &PathConfResponse{
		Status:          NFS3OK,
		Attr:            h.attrForEntry(entryID),
		LinkMax:         1,
		NameMax:         uint32(h.view.NameMax()),
		NoTrunc:         true,
		ChownRestricted: true,
		CaseInsensitive: false,
		CasePreserving:  true,
	}, nil
}

func DecodePathConfRequest(data []byte) (*PathConfRequest, error) {
	reader := bytes.NewReader(data)

	handle, err := readOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}

	return &PathConfRequest{Handle: handle}, nil
}

func (resp *PathConfResponse) Encode() ([]byte, error) {
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

	bools := func(b bool) uint32 {
		if b {
			return 1
		}
		return 0
	}

	fields := []any{
		resp.LinkMax,
		resp.NameMax,
		bools(resp.NoTrunc),
		bools(resp.ChownRestricted),
		bools(resp.CaseInsensitive),
		bools(resp.CasePreserving),
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.BigEndian, f); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

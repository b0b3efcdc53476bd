package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/pkg/mtab"
)

// ReadRequest represents a READ request
type ReadRequest struct {
	Handle []byte
	Offset uint64
	Count  uint32
}

// ReadResponse represents a READ response
type ReadResponse struct {
	Status uint32
	Attr   *FileAttr // post-op attributes (optional)
	Count  uint32
	Eof    bool
	Data   []byte
}

// Read rejects byte reads. RFC 1813 Section 3.3.6
//
// There are no regular files here: the directory answers ISDIR and a mount
// link answers INVAL, links being readable only through READLINK.
func (h *Handler) Read(_ context.Context, req *ReadRequest) (*ReadResponse, error) {
	logger.Debug("READ for handle %x, offset=%d, count=%d", req.Handle, req.Offset, req.Count)

	entryID, err := DecodeHandle(req.Handle)
	if err != nil {
		logger.Warn("READ with malformed handle: %v", err)
		return &ReadResponse{Status: NFS3ErrBadHandle}, nil
	}

	if h.view.Kind(entryID) == mtab.KindDirectory {
		return &ReadResponse{
			Status: NFS3ErrIsDir,
			Attr:   RootAttr(entryID),
		}, nil
	}

	return &ReadResponse{
		Status: NFS3ErrInval,
		Attr:   SymlinkAttr(entryID),
	}, nil
}

func DecodeReadRequest(data []byte) (*ReadRequest, error) {
	reader := bytes.NewReader(data)

	handle, err := readOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}

	var offset uint64
	if err := binary.Read(reader, binary.BigEndian, &offset); err != nil {
		return nil, fmt.Errorf("read offset: %w", err)
	}

	var count uint32
	if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	return &ReadRequest{Handle: handle, Offset: offset, Count: count}, nil
}

func (resp *ReadResponse) Encode() ([]byte, error) {
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

	if err := binary.Write(&buf, binary.BigEndian, resp.Count); err != nil {
		return nil, err
	}

	eofVal := uint32(0)
	if resp.Eof {
		eofVal = 1
	}
	if err := binary.Write(&buf, binary.BigEndian, eofVal); err != nil {
		return nil, err
	}

	if err := writeOpaque(&buf, resp.Data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

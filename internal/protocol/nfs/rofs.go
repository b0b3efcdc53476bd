package nfs

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/marmos91/mntfs/internal/logger"
)

// Readonly answers a mutating procedure with ROFS, encoding the failure arm
// that procedure's result type requires. The request body is never decoded;
// nothing in it can change the answer.
//
// Covers SETATTR, WRITE, CREATE, MKDIR, SYMLINK, MKNOD, REMOVE, RMDIR,
// RENAME, LINK and COMMIT.
func (h *Handler) Readonly(_ context.Context, procedure uint32) ([]byte, error) {
	logger.Debug("%s rejected on read-only filesystem", ProcedureName(procedure))

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(NFS3ErrRofs)); err != nil {
		return nil, err
	}

	switch procedure {
	case ProcRename:
		// wcc_data for both directories
		writeEmptyWcc(&buf)
		writeEmptyWcc(&buf)
	case ProcLink:
		// post_op_attr for the file, wcc_data for the directory
		if err := encodePostOpAttr(&buf, nil); err != nil {
			return nil, err
		}
		writeEmptyWcc(&buf)
	default:
		writeEmptyWcc(&buf)
	}

	return buf.Bytes(), nil
}

// writeEmptyWcc writes a wcc_data with neither pre nor post attributes.
func writeEmptyWcc(buf *bytes.Buffer) {
	_ = binary.Write(buf, binary.BigEndian, uint32(0))
	_ = binary.Write(buf, binary.BigEndian, uint32(0))
}

package nfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// maxOpaqueLen bounds variable-length fields in decoded requests. Handles
// are 8 bytes and names are at most a filename; anything larger is a
// malformed frame.
const maxOpaqueLen = 4096

// readOpaque reads an XDR variable-length opaque and its padding.
func readOpaque(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read opaque length: %w", err)
	}
	if length > maxOpaqueLen {
		return nil, fmt.Errorf("opaque length %d exceeds limit", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read opaque body: %w", err)
	}

	padding := (4 - (length % 4)) % 4
	for i := uint32(0); i < padding; i++ {
		if _, err := r.ReadByte(); err != nil {
			return nil, fmt.Errorf("read opaque padding: %w", err)
		}
	}

	return data, nil
}

// readString reads an XDR string.
func readString(r *bytes.Reader) (string, error) {
	data, err := readOpaque(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeOpaque writes an XDR variable-length opaque with its padding.
func writeOpaque(buf *bytes.Buffer, data []byte) error {
	length := uint32(len(data))
	if err := binary.Write(buf, binary.BigEndian, length); err != nil {
		return err
	}
	buf.Write(data)

	padding := (4 - (length % 4)) % 4
	for i := uint32(0); i < padding; i++ {
		buf.WriteByte(0)
	}
	return nil
}

// writeString writes an XDR string.
func writeString(buf *bytes.Buffer, s string) error {
	return writeOpaque(buf, []byte(s))
}

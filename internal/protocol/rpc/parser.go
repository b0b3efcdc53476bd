package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// ReadCall parses the RPC call header from a complete record.
func ReadCall(data []byte) (*CallMessage, error) {
	call := &CallMessage{}
	_, err := xdr.Unmarshal(bytes.NewReader(data), call)
	if err != nil {
		return nil, fmt.Errorf("unmarshal RPC call: %w", err)
	}

	if call.MsgType != MsgCall {
		return nil, fmt.Errorf("expected CALL (%d), got %d", MsgCall, call.MsgType)
	}

	return call, nil
}

// ReadData returns the procedure arguments following the RPC call header.
//
// The header is fixed-size up to the credential; the credential and
// verifier are variable-length opaques, so their lengths are read to find
// where the arguments start.
func ReadData(message []byte, call *CallMessage) ([]byte, error) {
	// XID, MsgType, RPCVersion, Program, Version, Procedure = 6 * 4 bytes
	offset := 24

	for _, auth := range []string{"credential", "verifier"} {
		if offset+8 > len(message) {
			return nil, fmt.Errorf("message truncated in %s", auth)
		}
		offset += 4 // flavor
		bodyLen := binary.BigEndian.Uint32(message[offset : offset+4])
		offset += 4

		padded := int(bodyLen) + int((4-(bodyLen%4))%4)
		if offset+padded > len(message) {
			return nil, fmt.Errorf("message truncated in %s body", auth)
		}
		offset += padded
	}

	if offset >= len(message) {
		return []byte{}, nil
	}
	return message[offset:], nil
}

// MakeSuccessReply frames an accepted SUCCESS reply carrying the encoded
// procedure results, with the record-marking fragment header prepended.
func MakeSuccessReply(xid uint32, data []byte) ([]byte, error) {
	return makeReply(xid, AcceptSuccess, data)
}

// MakeAcceptErrorReply frames an accepted reply with a non-success accept
// status (PROG_UNAVAIL, PROC_UNAVAIL, GARBAGE_ARGS, ...). No result data
// follows the header for these.
func MakeAcceptErrorReply(xid uint32, acceptStat uint32) ([]byte, error) {
	return makeReply(xid, acceptStat, nil)
}

// MakeProgMismatchReply frames a PROG_MISMATCH reply carrying the supported
// version range.
func MakeProgMismatchReply(xid uint32, low, high uint32) ([]byte, error) {
	var rng bytes.Buffer
	if err := binary.Write(&rng, binary.BigEndian, low); err != nil {
		return nil, err
	}
	if err := binary.Write(&rng, binary.BigEndian, high); err != nil {
		return nil, err
	}
	return makeReply(xid, AcceptProgMismatch, rng.Bytes())
}

func makeReply(xid uint32, acceptStat uint32, data []byte) ([]byte, error) {
	reply := ReplyMessage{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgAccepted,
		Verf: OpaqueAuth{
			Flavor: AuthNull,
			Body:   []byte{},
		},
		AcceptStat: acceptStat,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	buf.Write(data)

	// Prepend the record-marking header with the last-fragment bit set.
	replyData := buf.Bytes()
	fragmentHeader := make([]byte, 4)
	binary.BigEndian.PutUint32(fragmentHeader, 0x80000000|uint32(len(replyData)))

	return append(fragmentHeader, replyData...), nil
}

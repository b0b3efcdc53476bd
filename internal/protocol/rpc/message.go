package rpc

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// CallMessage is the RPC call header preceding every procedure's arguments.
type CallMessage struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// ReplyMessage is the accepted-reply header preceding every procedure's
// results.
type ReplyMessage struct {
	XID        uint32
	MsgType    uint32 // MsgReply
	ReplyState uint32 // MsgAccepted
	Verf       OpaqueAuth
	AcceptStat uint32
}

// OpaqueAuth is an authentication flavor with its opaque body.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}

// UnixCred is the decoded body of an AUTH_UNIX credential.
type UnixCred struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// DecodeUnixCred parses an AUTH_UNIX credential body. Returns nil when the
// credential carries a different flavor.
func DecodeUnixCred(auth OpaqueAuth) (*UnixCred, error) {
	if auth.Flavor != AuthUnix {
		return nil, nil
	}

	cred := &UnixCred{}
	if _, err := xdr.Unmarshal(bytes.NewReader(auth.Body), cred); err != nil {
		return nil, fmt.Errorf("unmarshal AUTH_UNIX credential: %w", err)
	}
	return cred, nil
}

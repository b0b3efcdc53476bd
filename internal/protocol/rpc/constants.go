package rpc

// RPC Program Numbers
// These identify the RPC programs served by mntfs.
const (
	// ProgramNFS is the NFS version 3 program number (RFC 1813)
	ProgramNFS = 100003

	// ProgramMount is the Mount protocol program number (RFC 1813 Appendix I)
	ProgramMount = 100005
)

// Program versions served.
const (
	// NFSVersion3 is the only NFS version mntfs speaks
	NFSVersion3 = 3

	// MountVersion3 is the MOUNT protocol version paired with NFSv3
	MountVersion3 = 3
)

// RPC Message Types
const (
	// MsgCall indicates an RPC call message
	MsgCall = 0

	// MsgReply indicates an RPC reply message
	MsgReply = 1
)

// RPC Reply States
const (
	// MsgAccepted indicates the RPC call was accepted
	MsgAccepted = 0

	// MsgDenied indicates the RPC call was denied
	MsgDenied = 1
)

// RPC Accept Status (RFC 5531 Section 9)
const (
	// AcceptSuccess indicates successful RPC execution
	AcceptSuccess = 0

	// AcceptProgUnavail indicates the program is not served here
	AcceptProgUnavail = 1

	// AcceptProgMismatch indicates an unsupported program version
	AcceptProgMismatch = 2

	// AcceptProcUnavail indicates the procedure is unavailable
	AcceptProcUnavail = 3

	// AcceptGarbageArgs indicates the arguments could not be decoded
	AcceptGarbageArgs = 4

	// AcceptSystemErr indicates an internal error while dispatching
	AcceptSystemErr = 5
)

// Authentication flavors (RFC 5531 Section 8.2)
const (
	// AuthNull carries no credentials
	AuthNull = 0

	// AuthUnix carries uid/gid credentials
	AuthUnix = 1
)

// MaxFragmentSize bounds a single RPC record fragment. mntfs requests and
// replies are tiny; anything near this limit is a malformed or hostile
// frame.
const MaxFragmentSize = 1 << 20 // 1MB

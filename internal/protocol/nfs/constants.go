package nfs

// NFS v3 procedure numbers (RFC 1813 Section 3.3)
const (
	ProcNull        = 0
	ProcGetAttr     = 1
	ProcSetAttr     = 2
	ProcLookup      = 3
	ProcAccess      = 4
	ProcReadLink    = 5
	ProcRead        = 6
	ProcWrite       = 7
	ProcCreate      = 8
	ProcMkdir       = 9
	ProcSymlink     = 10
	ProcMknod       = 11
	ProcRemove      = 12
	ProcRmdir       = 13
	ProcRename      = 14
	ProcLink        = 15
	ProcReadDir     = 16
	ProcReadDirPlus = 17
	ProcFSStat      = 18
	ProcFSInfo      = 19
	ProcPathConf    = 20
	ProcCommit      = 21
)

// NFS v3 status codes (RFC 1813 Section 2.6)
const (
	NFS3OK             = 0
	NFS3ErrPerm        = 1
	NFS3ErrNoEnt       = 2
	NFS3ErrIO          = 5
	NFS3ErrAcces       = 13
	NFS3ErrInval       = 22
	NFS3ErrNotDir      = 20
	NFS3ErrIsDir       = 21
	NFS3ErrRofs        = 30
	NFS3ErrNameTooLong = 63
	NFS3ErrStale       = 70
	NFS3ErrBadHandle   = 10001
	NFS3ErrNotSupp     = 10004
	NFS3ErrServerFault = 10006
)

// NFS v3 file types
const (
	NF3Reg  = 1
	NF3Dir  = 2
	NF3Blk  = 3
	NF3Chr  = 4
	NF3Lnk  = 5
	NF3Sock = 6
	NF3Fifo = 7
)

// ACCESS permission bits (RFC 1813 Section 3.3.4)
const (
	AccessRead    = 0x0001
	AccessLookup  = 0x0002
	AccessModify  = 0x0004
	AccessExtend  = 0x0008
	AccessDelete  = 0x0010
	AccessExecute = 0x0020
)

// HandleSize is the length of every file handle this server issues: one
// big-endian entry identifier. Handles of any other length were not issued
// here and are rejected as bad rather than stale.
const HandleSize = 8

// Protocol size properties advertised by FSINFO and PATHCONF. Transfer
// sizes are token values; the only readable objects are symlinks, read
// through READLINK rather than READ.
const (
	MaxReadSize  = 65536
	MaxWriteSize = 65536
	DirTransfer  = 65536
)

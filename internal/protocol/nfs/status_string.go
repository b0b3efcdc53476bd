package nfs

import "strconv"

// ProcedureName returns the RFC 1813 name of an NFS v3 procedure, used for
// log lines and metric labels.
func ProcedureName(proc uint32) string {
	switch proc {
	case ProcNull:
		return "NULL"
	case ProcGetAttr:
		return "GETATTR"
	case ProcSetAttr:
		return "SETATTR"
	case ProcLookup:
		return "LOOKUP"
	case ProcAccess:
		return "ACCESS"
	case ProcReadLink:
		return "READLINK"
	case ProcRead:
		return "READ"
	case ProcWrite:
		return "WRITE"
	case ProcCreate:
		return "CREATE"
	case ProcMkdir:
		return "MKDIR"
	case ProcSymlink:
		return "SYMLINK"
	case ProcMknod:
		return "MKNOD"
	case ProcRemove:
		return "REMOVE"
	case ProcRmdir:
		return "RMDIR"
	case ProcRename:
		return "RENAME"
	case ProcLink:
		return "LINK"
	case ProcReadDir:
		return "READDIR"
	case ProcReadDirPlus:
		return "READDIRPLUS"
	case ProcFSStat:
		return "FSSTAT"
	case ProcFSInfo:
		return "FSINFO"
	case ProcPathConf:
		return "PATHCONF"
	case ProcCommit:
		return "COMMIT"
	default:
		return "UNKNOWN(" + strconv.FormatUint(uint64(proc), 10) + ")"
	}
}

// StatusString returns a short name for an NFS v3 status code.
func StatusString(status uint32) string {
	switch status {
	case NFS3OK:
		return "OK"
	case NFS3ErrPerm:
		return "PERM"
	case NFS3ErrNoEnt:
		return "NOENT"
	case NFS3ErrIO:
		return "IO"
	case NFS3ErrAcces:
		return "ACCES"
	case NFS3ErrInval:
		return "INVAL"
	case NFS3ErrNotDir:
		return "NOTDIR"
	case NFS3ErrIsDir:
		return "ISDIR"
	case NFS3ErrRofs:
		return "ROFS"
	case NFS3ErrNameTooLong:
		return "NAMETOOLONG"
	case NFS3ErrStale:
		return "STALE"
	case NFS3ErrBadHandle:
		return "BADHANDLE"
	case NFS3ErrNotSupp:
		return "NOTSUPP"
	case NFS3ErrServerFault:
		return "SERVERFAULT"
	default:
		return "UNKNOWN(" + strconv.FormatUint(uint64(status), 10) + ")"
	}
}

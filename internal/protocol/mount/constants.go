package mount

// MOUNT v3 procedure numbers (RFC 1813 Appendix I)
const (
	ProcNull    = 0
	ProcMnt     = 1
	ProcDump    = 2
	ProcUmnt    = 3
	ProcUmntAll = 4
	ProcExport  = 5
)

// MOUNT v3 status codes
const (
	MNT3OK             = 0
	MNT3ErrPerm        = 1
	MNT3ErrNoEnt       = 2
	MNT3ErrIO          = 5
	MNT3ErrAcces       = 13
	MNT3ErrNotDir      = 20
	MNT3ErrInval       = 22
	MNT3ErrNameTooLong = 63
	MNT3ErrNotSupp     = 10004
	MNT3ErrServerFault = 10006
)

// MaxPathLen bounds the directory path accepted in MNT and UMNT arguments.
const MaxPathLen = 1024

package nfs

import "github.com/marmos91/mntfs/pkg/mtab"

// StatusFromError maps a view error to an NFS v3 status code. This is the
// single place domain errors become wire statuses.
//
// A missing namespace maps to NOENT, not a fault: a caller with no
// namespace simply sees nothing, the same as a caller whose mount vanished.
func StatusFromError(err error) uint32 {
	switch {
	case err == nil:
		return NFS3OK
	case mtab.IsCode(err, mtab.ErrNotFound):
		return NFS3ErrNoEnt
	case mtab.IsCode(err, mtab.ErrNoNamespace):
		return NFS3ErrNoEnt
	case mtab.IsCode(err, mtab.ErrNameTooLong):
		return NFS3ErrNameTooLong
	case mtab.IsCode(err, mtab.ErrExhausted):
		return NFS3ErrServerFault
	default:
		return NFS3ErrServerFault
	}
}

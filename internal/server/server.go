package server

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/internal/protocol/mount"
	"github.com/marmos91/mntfs/internal/protocol/nfs"
	"github.com/marmos91/mntfs/internal/protocol/rpc"
	"github.com/marmos91/mntfs/pkg/metrics"
)

// Engine routes decoded RPC calls to the protocol handlers and frames the
// replies. One Engine is shared by every connection; it holds no
// per-connection state.
type Engine struct {
	nfs     *nfs.Handler
	mount   *mount.Handler
	metrics metrics.NFSMetrics
}

// NewEngine builds an Engine over the two protocol handlers.
func NewEngine(nfsHandler *nfs.Handler, mountHandler *mount.Handler, m metrics.NFSMetrics) *Engine {
	if m == nil {
		m = metrics.NewNoopNFSMetrics()
	}
	return &Engine{
		nfs:     nfsHandler,
		mount:   mountHandler,
		metrics: m,
	}
}

// Handle processes one complete RPC record and returns the framed reply.
//
// A nil reply with a nil error means the record was unintelligible and the
// connection should drop it silently, per RPC convention for undecodable
// calls.
func (e *Engine) Handle(ctx context.Context, message []byte) ([]byte, error) {
	call, err := rpc.ReadCall(message)
	if err != nil {
		logger.Debug("dropping unparseable RPC record: %v", err)
		return nil, nil
	}

	logger.Debug("RPC call: xid=0x%x program=%d version=%d procedure=%d",
		call.XID, call.Program, call.Version, call.Procedure)

	switch call.Program {
	case rpc.ProgramNFS:
		if call.Version != rpc.NFSVersion3 {
			return rpc.MakeProgMismatchReply(call.XID, rpc.NFSVersion3, rpc.NFSVersion3)
		}
	case rpc.ProgramMount:
		if call.Version != rpc.MountVersion3 {
			return rpc.MakeProgMismatchReply(call.XID, rpc.MountVersion3, rpc.MountVersion3)
		}
	default:
		logger.Debug("unknown program %d", call.Program)
		return rpc.MakeAcceptErrorReply(call.XID, rpc.AcceptProgUnavail)
	}

	data, err := rpc.ReadData(message, call)
	if err != nil {
		logger.Debug("dropping record with truncated body: %v", err)
		return rpc.MakeAcceptErrorReply(call.XID, rpc.AcceptGarbageArgs)
	}

	var (
		procName string
		reply    []byte
	)
	switch call.Program {
	case rpc.ProgramNFS:
		procName = "nfs." + nfs.ProcedureName(call.Procedure)
		reply, err = e.handleNFSProcedure(ctx, call.Procedure, data)
	case rpc.ProgramMount:
		procName = "mount." + mountProcedureName(call.Procedure)
		reply, err = e.handleMountProcedure(ctx, call, data)
	}

	if err == errProcUnavail {
		return rpc.MakeAcceptErrorReply(call.XID, rpc.AcceptProcUnavail)
	}
	if err != nil {
		logger.Error("handler failed for %s: %v", procName, err)
		return rpc.MakeAcceptErrorReply(call.XID, rpc.AcceptSystemErr)
	}

	return rpc.MakeSuccessReply(call.XID, reply)
}

// errProcUnavail marks an unimplemented procedure inside a served program.
var errProcUnavail = fmt.Errorf("procedure unavailable")

func (e *Engine) handleNFSProcedure(ctx context.Context, procedure uint32, data []byte) ([]byte, error) {
	procName := "nfs." + nfs.ProcedureName(procedure)
	e.metrics.RecordRequestStart(procName)
	start := time.Now()

	reply, err := e.dispatchNFS(ctx, procedure, data)

	e.metrics.RecordRequestEnd(procName)
	e.metrics.RecordRequest(procName, replyStatusLabel(reply, err), time.Since(start))
	return reply, err
}

func (e *Engine) dispatchNFS(ctx context.Context, procedure uint32, data []byte) ([]byte, error) {
	h := e.nfs

	switch procedure {
	case nfs.ProcNull:
		return h.Null(ctx)
	case nfs.ProcGetAttr:
		return handleRequest(
			data,
			nfs.DecodeGetAttrRequest,
			func(req *nfs.GetAttrRequest) (*nfs.GetAttrResponse, error) {
				return h.GetAttr(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.GetAttrResponse {
				return &nfs.GetAttrResponse{Status: status}
			},
		)
	case nfs.ProcLookup:
		return handleRequest(
			data,
			nfs.DecodeLookupRequest,
			func(req *nfs.LookupRequest) (*nfs.LookupResponse, error) {
				return h.Lookup(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.LookupResponse {
				return &nfs.LookupResponse{Status: status}
			},
		)
	case nfs.ProcAccess:
		return handleRequest(
			data,
			nfs.DecodeAccessRequest,
			func(req *nfs.AccessRequest) (*nfs.AccessResponse, error) {
				return h.Access(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.AccessResponse {
				return &nfs.AccessResponse{Status: status}
			},
		)
	case nfs.ProcReadLink:
		return handleRequest(
			data,
			nfs.DecodeReadLinkRequest,
			func(req *nfs.ReadLinkRequest) (*nfs.ReadLinkResponse, error) {
				return h.ReadLink(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.ReadLinkResponse {
				return &nfs.ReadLinkResponse{Status: status}
			},
		)
	case nfs.ProcRead:
		return handleRequest(
			data,
			nfs.DecodeReadRequest,
			func(req *nfs.ReadRequest) (*nfs.ReadResponse, error) {
				return h.Read(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.ReadResponse {
				return &nfs.ReadResponse{Status: status}
			},
		)
	case nfs.ProcReadDir:
		return handleRequest(
			data,
			nfs.DecodeReadDirRequest,
			func(req *nfs.ReadDirRequest) (*nfs.ReadDirResponse, error) {
				return h.ReadDir(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.ReadDirResponse {
				return &nfs.ReadDirResponse{Status: status}
			},
		)
	case nfs.ProcReadDirPlus:
		return handleRequest(
			data,
			nfs.DecodeReadDirPlusRequest,
			func(req *nfs.ReadDirPlusRequest) (*nfs.ReadDirPlusResponse, error) {
				return h.ReadDirPlus(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.ReadDirPlusResponse {
				return &nfs.ReadDirPlusResponse{Status: status}
			},
		)
	case nfs.ProcFSStat:
		return handleRequest(
			data,
			nfs.DecodeFSStatRequest,
			func(req *nfs.FSStatRequest) (*nfs.FSStatResponse, error) {
				return h.FSStat(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.FSStatResponse {
				return &nfs.FSStatResponse{Status: status}
			},
		)
	case nfs.ProcFSInfo:
		return handleRequest(
			data,
			nfs.DecodeFSInfoRequest,
			func(req *nfs.FSInfoRequest) (*nfs.FSInfoResponse, error) {
				return h.FSInfo(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.FSInfoResponse {
				return &nfs.FSInfoResponse{Status: status}
			},
		)
	case nfs.ProcPathConf:
		return handleRequest(
			data,
			nfs.DecodePathConfRequest,
			func(req *nfs.PathConfRequest) (*nfs.PathConfResponse, error) {
				return h.PathConf(ctx, req)
			},
			nfs.NFS3ErrBadHandle,
			func(status uint32) *nfs.PathConfResponse {
				return &nfs.PathConfResponse{Status: status}
			},
		)
	case nfs.ProcSetAttr, nfs.ProcWrite, nfs.ProcCreate, nfs.ProcMkdir,
		nfs.ProcSymlink, nfs.ProcMknod, nfs.ProcRemove, nfs.ProcRmdir,
		nfs.ProcRename, nfs.ProcLink, nfs.ProcCommit:
		return h.Readonly(ctx, procedure)
	default:
		logger.Debug("unknown NFS procedure %d", procedure)
		return nil, errProcUnavail
	}
}

func (e *Engine) handleMountProcedure(ctx context.Context, call *rpc.CallMessage, data []byte) ([]byte, error) {
	procName := "mount." + mountProcedureName(call.Procedure)
	e.metrics.RecordRequestStart(procName)
	start := time.Now()

	reply, err := e.dispatchMount(ctx, call, data)

	// Only MNT replies carry a leading status word; the other MOUNT
	// procedures encode bare lists or nothing.
	label := "OK"
	if call.Procedure == mount.ProcMnt {
		label = replyStatusLabel(reply, err)
	} else if err != nil {
		label = "ERROR"
	}

	e.metrics.RecordRequestEnd(procName)
	e.metrics.RecordRequest(procName, label, time.Since(start))
	return reply, err
}

func (e *Engine) dispatchMount(ctx context.Context, call *rpc.CallMessage, data []byte) ([]byte, error) {
	h := e.mount
	hostname := callerHostname(call)

	switch call.Procedure {
	case mount.ProcNull:
		return h.Null(ctx)
	case mount.ProcMnt:
		return handleRequest(
			data,
			func(data []byte) (*mount.MntRequest, error) {
				req, err := mount.DecodeMntRequest(data)
				if err != nil {
					return nil, err
				}
				req.Hostname = hostname
				return req, nil
			},
			func(req *mount.MntRequest) (*mount.MntResponse, error) {
				return h.Mnt(ctx, req)
			},
			mount.MNT3ErrInval,
			func(status uint32) *mount.MntResponse {
				return &mount.MntResponse{Status: status}
			},
		)
	case mount.ProcDump:
		resp, err := h.Dump(ctx)
		if err != nil {
			return nil, err
		}
		return resp.Encode()
	case mount.ProcUmnt:
		req, err := mount.DecodeUmntRequest(data)
		if err != nil {
			logger.Debug("undecodable UMNT request: %v", err)
			return []byte{}, nil
		}
		req.Hostname = hostname
		return h.Umnt(ctx, req)
	case mount.ProcUmntAll:
		return h.UmntAll(ctx, hostname)
	case mount.ProcExport:
		resp, err := h.Export(ctx)
		if err != nil {
			return nil, err
		}
		return resp.Encode()
	default:
		logger.Debug("unknown MOUNT procedure %d", call.Procedure)
		return nil, errProcUnavail
	}
}

// callerHostname extracts the machine name from an AUTH_UNIX credential.
// Callers without one are tracked under their flavorless empty name.
func callerHostname(call *rpc.CallMessage) string {
	cred, err := rpc.DecodeUnixCred(call.Cred)
	if err != nil || cred == nil {
		return ""
	}
	return cred.MachineName
}

// replyStatusLabel recovers the metric status label from an encoded result.
// Every non-empty result starts with its status word; NULL and the list
// procedures without one count as OK.
func replyStatusLabel(reply []byte, err error) string {
	if err != nil {
		return "ERROR"
	}
	if len(reply) < 4 {
		return nfs.StatusString(nfs.NFS3OK)
	}
	return nfs.StatusString(binary.BigEndian.Uint32(reply[:4]))
}

func mountProcedureName(procedure uint32) string {
	switch procedure {
	case mount.ProcNull:
		return "NULL"
	case mount.ProcMnt:
		return "MNT"
	case mount.ProcDump:
		return "DUMP"
	case mount.ProcUmnt:
		return "UMNT"
	case mount.ProcUmntAll:
		return "UMNTALL"
	case mount.ProcExport:
		return "EXPORT"
	default:
		return "UNKNOWN"
	}
}

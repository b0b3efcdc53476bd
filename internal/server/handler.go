package server

import (
	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/internal/protocol/mount"
	"github.com/marmos91/mntfs/internal/protocol/nfs"
)

type rpcRequest interface {
	*nfs.GetAttrRequest |
		*nfs.LookupRequest |
		*nfs.AccessRequest |
		*nfs.ReadLinkRequest |
		*nfs.ReadRequest |
		*nfs.ReadDirRequest |
		*nfs.ReadDirPlusRequest |
		*nfs.FSStatRequest |
		*nfs.FSInfoRequest |
		*nfs.PathConfRequest |
		*mount.MntRequest
}

type rpcResponse interface {
	*nfs.GetAttrResponse |
		*nfs.LookupResponse |
		*nfs.AccessResponse |
		*nfs.ReadLinkResponse |
		*nfs.ReadResponse |
		*nfs.ReadDirResponse |
		*nfs.ReadDirPlusResponse |
		*nfs.FSStatResponse |
		*nfs.FSInfoResponse |
		*nfs.PathConfResponse |
		*mount.MntResponse
	Encode() ([]byte, error)
}

// handleRequest runs one decode/handle/encode cycle, degrading every
// failure to an encoded error response so the client always gets an answer.
func handleRequest[Req rpcRequest, Resp rpcResponse](
	data []byte,
	decode func([]byte) (Req, error),
	handle func(Req) (Resp, error),
	errorStatus uint32,
	makeErrorResp func(uint32) Resp,
) ([]byte, error) {
	req, err := decode(data)
	if err != nil {
		logger.Debug("error decoding request: %v", err)
		errorResp := makeErrorResp(errorStatus)
		return errorResp.Encode()
	}

	resp, err := handle(req)
	if err != nil {
		logger.Debug("handler error: %v", err)
		errorResp := makeErrorResp(errorStatus)
		return errorResp.Encode()
	}

	encoded, err := resp.Encode()
	if err != nil {
		logger.Debug("error encoding response: %v", err)
		errorResp := makeErrorResp(errorStatus)
		return errorResp.Encode()
	}

	return encoded, nil
}

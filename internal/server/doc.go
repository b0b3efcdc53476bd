// Package server dispatches RPC records to the NFS and MOUNT protocol
// handlers. It owns the per-connection read loop, record reassembly and the
// procedure switch; connection lifecycle (accept, limits, shutdown) belongs
// to the adapter layer above.
package server

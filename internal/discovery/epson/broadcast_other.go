//go:build !unix && !windows

package epson

import "syscall"

func setBroadcast(network, address string, c syscall.RawConn) error {
	return nil
}

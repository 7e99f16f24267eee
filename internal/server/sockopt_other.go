//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package server

import (
	"syscall"

	coreerrors "tunnelgate/internal/core/errors"
)

func reusePortControl(network, address string, c syscall.RawConn) error {
	return coreerrors.New(coreerrors.CodeConfigError, "reuse_port is not supported on this platform")
}

//go:build !unix && !windows

package filelock

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("file locking is not supported on this platform")

func lockFile(*os.File) error { return errUnsupported }

func unlockFile(*os.File) error { return errUnsupported }

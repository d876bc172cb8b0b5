//go:build unix

package state

import (
	"os"

	"golang.org/x/sys/unix"
)

func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how)
		if err != unix.EINTR {
			return err
		}
	}
}

func lockExclusive(f *os.File) error { return flock(f, unix.LOCK_EX) }
func lockShared(f *os.File) error    { return flock(f, unix.LOCK_SH) }
func unlock(f *os.File) error        { return flock(f, unix.LOCK_UN) }

//go:build linux || darwin

package engine

import (
	"golang.org/x/sys/unix"
)

// raiseFileLimit lifts the soft RLIMIT_NOFILE to want, capped by the hard
// limit, and returns the limit now in effect.
func raiseFileLimit(want uint64) (uint64, error) {
	var lim unix.Rlimit

	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}

	if lim.Cur >= want {
		return lim.Cur, nil
	}

	lim.Cur = min(want, lim.Max)

	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}

	return lim.Cur, nil
}

//go:build !windows && !linux && !darwin

package scandir

import (
	"syscall"
	"time"
)

// The Stat_t timespec field names differ across the BSDs, so access and
// change times stay zero here.
func statTimes(_ *syscall.Stat_t) (atime, ctime time.Time) {
	return time.Time{}, time.Time{}
}

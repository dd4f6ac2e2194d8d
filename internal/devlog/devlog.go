// Package devlog prints timestamped trace lines for native window plumbing.
// Silent unless JIWUCHAT_DEVLOG=1.
package devlog

import (
	"fmt"
	"os"
	"time"
)

var enabled = os.Getenv("JIWUCHAT_DEVLOG") == "1"

// Printf prints "15:04:05.000 [Tag] message" to stderr.
func Printf(format string, args ...any) {
	if !enabled {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}

//go:build !desktop

package cli

import (
	"fmt"
	"os"
)

// RunDesktop falls back to headless mode when built without desktop support.
// Build with -tags desktop for the native window.
func RunDesktop(args []string) {
	fmt.Println("Desktop mode not available in this build. Running headless...")
	os.Exit(RunHeadless(args))
}

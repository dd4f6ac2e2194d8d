package deeplink

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrRegisterUnsupported is returned where the scheme cannot be registered at
// runtime. On macOS the scheme is declared in the bundle's Info.plist.
var ErrRegisterUnsupported = errors.New("deeplink: runtime scheme registration not supported on this platform")

// Registration describes the handler to install for a scheme.
type Registration struct {
	Scheme string
	// AppName is used for the handler's display name and file names.
	AppName string
	// Executable is the binary the OS should launch; defaults to os.Executable.
	Executable string
}

func (r Registration) executable() (string, error) {
	if r.Executable != "" {
		return r.Executable, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

func (r Registration) appName() string {
	if r.AppName != "" {
		return r.AppName
	}
	return r.Scheme
}

// Register installs r as the OS handler for its scheme.
func Register(r Registration) error {
	if r.Scheme == "" {
		r.Scheme = DefaultScheme
	}
	return register(r)
}

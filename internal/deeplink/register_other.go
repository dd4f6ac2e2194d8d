//go:build !linux && !windows

package deeplink

func register(Registration) error {
	return ErrRegisterUnsupported
}

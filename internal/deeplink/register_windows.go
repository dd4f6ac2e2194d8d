//go:build windows

package deeplink

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

func register(r Registration) error {
	exe, err := r.executable()
	if err != nil {
		return fmt.Errorf("deeplink: resolve executable: %w", err)
	}

	base := `Software\Classes\` + r.Scheme
	key, _, err := registry.CreateKey(registry.CURRENT_USER, base, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("deeplink: create %s: %w", base, err)
	}
	defer key.Close()
	if err := key.SetStringValue("", "URL:"+r.appName()+" Protocol"); err != nil {
		return fmt.Errorf("deeplink: set description: %w", err)
	}
	if err := key.SetStringValue("URL Protocol", ""); err != nil {
		return fmt.Errorf("deeplink: set URL Protocol: %w", err)
	}

	cmdPath := base + `\shell\open\command`
	cmd, _, err := registry.CreateKey(registry.CURRENT_USER, cmdPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("deeplink: create %s: %w", cmdPath, err)
	}
	defer cmd.Close()
	if err := cmd.SetStringValue("", fmt.Sprintf(`"%s" "%%1"`, exe)); err != nil {
		return fmt.Errorf("deeplink: set open command: %w", err)
	}
	return nil
}

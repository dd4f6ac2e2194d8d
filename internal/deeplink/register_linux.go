//go:build linux

package deeplink

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runCommand is swapped out in tests.
var runCommand = func(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func applicationsDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "applications"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "applications"), nil
}

func desktopFileName(r Registration) string {
	return strings.ToLower(r.appName()) + "-url-handler.desktop"
}

func desktopEntry(r Registration, exe string) string {
	return fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Exec=%q %%u
Terminal=false
NoDisplay=true
MimeType=x-scheme-handler/%s;
`, r.appName(), exe, r.Scheme)
}

func register(r Registration) error {
	exe, err := r.executable()
	if err != nil {
		return fmt.Errorf("deeplink: resolve executable: %w", err)
	}
	dir, err := applicationsDir()
	if err != nil {
		return fmt.Errorf("deeplink: resolve applications dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("deeplink: create applications dir: %w", err)
	}
	name := desktopFileName(r)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(desktopEntry(r, exe)), 0644); err != nil {
		return fmt.Errorf("deeplink: write desktop entry: %w", err)
	}
	if err := runCommand("xdg-mime", "default", name, "x-scheme-handler/"+r.Scheme); err != nil {
		return fmt.Errorf("deeplink: set default handler: %w", err)
	}
	return nil
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jiwuchat/jiwuchat-shell/internal/defaults"
	"github.com/jiwuchat/jiwuchat-shell/internal/httputil"
	"github.com/jiwuchat/jiwuchat-shell/internal/middleware"
	"github.com/jiwuchat/jiwuchat-shell/internal/types"
)

// ErrNotRunning means no instance file was found.
var ErrNotRunning = errors.New("jiwuchat is not running")

func instancePath(dataDir string) string {
	return filepath.Join(dataDir, defaults.InstanceFile)
}

// writeInstance records the running shell atomically with owner-only
// permissions, since the file carries the forwarding secret.
func writeInstance(dataDir string, info types.InstanceInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	tmp := instancePath(dataDir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write instance file: %w", err)
	}
	if err := os.Rename(tmp, instancePath(dataDir)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write instance file: %w", err)
	}
	return nil
}

func readInstance(dataDir string) (types.InstanceInfo, error) {
	var info types.InstanceInfo
	data, err := os.ReadFile(instancePath(dataDir))
	if errors.Is(err, os.ErrNotExist) {
		return info, ErrNotRunning
	}
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("parse instance file: %w", err)
	}
	if info.Addr == "" {
		return info, ErrNotRunning
	}
	return info, nil
}

// removeInstance deletes the instance file if it still belongs to pid.
func removeInstance(dataDir string, pid int) {
	info, err := readInstance(dataDir)
	if err != nil || info.PID != pid {
		return
	}
	os.Remove(instancePath(dataDir))
}

// forwardURLs hands urls to the running instance, which treats them as
// runtime URLs. It returns how many were OAuth callbacks.
func forwardURLs(ctx context.Context, dataDir string, urls []string) (int, error) {
	info, err := readInstance(dataDir)
	if err != nil {
		return 0, err
	}
	token, err := middleware.IssueInstanceToken(info.Secret, fmt.Sprintf("pid-%d", os.Getpid()))
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(types.OpenDeepLinkRequest{URLs: urls})
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+info.Addr+"/api/v1/deeplink", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w (instance at %s unreachable: %v)", ErrNotRunning, info.Addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e httputil.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Message != "" {
			return 0, fmt.Errorf("forward deep link: %s (%d)", e.Message, resp.StatusCode)
		}
		return 0, fmt.Errorf("forward deep link: status %d", resp.StatusCode)
	}
	var out types.OpenDeepLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("forward deep link: decode reply: %w", err)
	}
	return out.Accepted, nil
}

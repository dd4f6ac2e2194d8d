package types

import "github.com/jiwuchat/jiwuchat-shell/internal/deeplink"

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Variant   string `json:"variant"`
	Timestamp string `json:"timestamp"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type GetCachedCallbackRequest struct {
	Take bool `form:"take"`
}

// CachedCallbackResponse carries the cached record, or null when the slot
// is empty.
type CachedCallbackResponse struct {
	Callback *deeplink.CallbackRecord `json:"callback"`
}

type OpenDeepLinkRequest struct {
	URLs []string `json:"urls"`
}

type OpenDeepLinkResponse struct {
	Accepted int `json:"accepted"`
}

// InstanceInfo is written to the data directory by the running headless shell
// so later invocations can reach it.
type InstanceInfo struct {
	PID       int    `json:"pid"`
	Addr      string `json:"addr"`
	Variant   string `json:"variant"`
	StartedAt string `json:"startedAt"`
	// Secret signs forwarding tokens; the file is private to the user.
	Secret string `json:"secret"`
}

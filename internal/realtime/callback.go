package realtime

import (
	"time"

	"github.com/jiwuchat/jiwuchat-shell/internal/deeplink"
	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
)

const (
	// TypeGetOAuthCallback asks for the cached callback record.
	TypeGetOAuthCallback = "get_oauth_callback"
	// TypeOAuthCallbackCached answers TypeGetOAuthCallback.
	TypeOAuthCallbackCached = "oauth-callback-cached"
)

// RegisterCallbackHandler lets clients pull the cached callback over the
// socket. A request whose data contains {"take": true} empties the slot.
func RegisterCallbackHandler(hub *Hub, cache *deeplink.Slot) {
	hub.Handle(TypeGetOAuthCallback, func(c *Client, msg *Message) {
		var (
			rec deeplink.CallbackRecord
			ok  bool
		)
		if wantsTake(msg.Data) {
			rec, ok = cache.Take()
		} else {
			rec, ok = cache.Load()
		}

		reply := &Message{Type: TypeOAuthCallbackCached, Timestamp: time.Now()}
		if ok {
			reply.Data = rec
		}
		if err := c.SendMessage(reply); err != nil {
			logging.Debugf("[realtime] cached callback reply to %s failed: %v", c.ID, err)
		}
	})
}

func wantsTake(data any) bool {
	m, ok := data.(map[string]any)
	if !ok {
		return false
	}
	take, _ := m["take"].(bool)
	return take
}

package events

// Frontend-bound topics carry the event name the web app listens for.
const (
	TopicOAuthCallback = "oauth-callback"

	// TopicWindowFocus asks the frontend host to raise its window. Browser
	// frontends receive it as a hint; the native window is focused directly.
	TopicWindowFocus = "window-focus"
)

// Frontend lists the topics forwarded to frontend transports.
func Frontend() []string {
	return []string{TopicOAuthCallback, TopicWindowFocus}
}

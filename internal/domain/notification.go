package domain

// Notification is a backend-agnostic outbound message. Each notifier backend
// maps it onto its own wire format (Discord embed, Slack attachment).
type Notification struct {
	Title   string
	Message string
	Color   int
	Author  string
	URL     string
}

package realtime

// Named realtime streams used across the platform.
const (
	StreamMessages      = "messages"
	StreamNotifications = "notifications"
	StreamConnections   = "connections"
)

// Events pushed to clients. Delivery is best effort; the durable Notification
// row is the fallback for anything a client missed.
const (
	EventNewMessage         = "new_message"
	EventConnectionAccepted = "connection_accepted"
	EventNotificationNew    = "notification.created"
)

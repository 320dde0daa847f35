package models

// NotificationItem is a user-facing alert shown in the inbox.
type NotificationItem struct {
	ID        string `json:"id"`
	UserID    string `json:"userId,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
	Read      bool   `json:"read"`
}

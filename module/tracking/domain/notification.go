package domain

import "time"

type NotificationLevel string

const (
	NotifyInfo    NotificationLevel = "info"
	NotifyWarning NotificationLevel = "warning"
	NotifyError   NotificationLevel = "error"
)

// Notification is a transient message for the operator of one view.
type Notification struct {
	ViewID  string            `json:"view_id"`
	Level   NotificationLevel `json:"level"`
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	At      time.Time         `json:"at"`
}

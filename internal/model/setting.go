package model

import "time"

// Well-known settings keys.
const (
	SettingLastSyncTime = "lastSyncTime"
)

// Setting is a string-keyed configuration value persisted across restarts.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

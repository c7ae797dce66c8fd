package userdata

import "github.com/uptrace/bun"

// NotificationSetting is one (user, type) delivery preference. Absence of a
// row means delivery is enabled.
type NotificationSetting struct {
	bun.BaseModel `bun:"userdata.notification_settings"`

	UserId  int64  `json:"user_id"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

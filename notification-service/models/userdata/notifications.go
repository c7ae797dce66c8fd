package userdata

import (
	"time"

	"github.com/uptrace/bun"
)

// Notification is one recipient's copy of a rendered message. Fan-out
// creates an independent row per recipient so read state never crosses
// users. Only rendered strings are stored; the source payload is not kept.
type Notification struct {
	bun.BaseModel `bun:"userdata.notifications"`

	Id        string     `bun:",pk" json:"id"`
	UserId    int64      `json:"user_id"`
	SenderId  *int64     `json:"sender_id,omitempty"`
	ProjectId *int64     `json:"project_id,omitempty"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

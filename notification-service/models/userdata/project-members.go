package userdata

import "github.com/uptrace/bun"

// ProjectMember belongs to the project subsystem; this service only reads it
// to expand a project into recipient user ids.
type ProjectMember struct {
	bun.BaseModel `bun:"userdata.project_members"`

	ProjectId int64 `json:"project_id"`
	UserId    int64 `json:"user_id"`
}

package userdata

import "github.com/uptrace/bun"

type User struct {
	bun.BaseModel `bun:"userdata.users"`

	Id    int64  `bun:",pk" json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

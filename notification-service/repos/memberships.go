package repos

import (
	"context"

	"github.com/collabhub/collabhub-server/notification-service/models/userdata"
	"github.com/uptrace/bun"
)

// MembershipRepo reads the project subsystem's membership table to expand a
// project into recipient ids.
type MembershipRepo struct {
	db *bun.DB
}

func NewMembershipRepo(db *bun.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

func (c *MembershipRepo) MemberIds(ctx context.Context, projectId int64) ([]int64, error) {
	ids := make([]int64, 0)

	err := c.db.NewSelect().Model((*userdata.ProjectMember)(nil)).
		Column("user_id").
		Where("project_id = ?", projectId).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

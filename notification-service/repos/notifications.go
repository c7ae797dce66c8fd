package repos

import (
	"context"
	"time"

	"github.com/collabhub/collabhub-server/notification-service/models/userdata"
	"github.com/uptrace/bun"
)

type NotificationRepo struct {
	db *bun.DB
}

func NewNotificationRepo(db *bun.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (c *NotificationRepo) Add(ctx context.Context, notification *userdata.Notification) error {
	_, err := c.db.NewInsert().Model(notification).Exec(ctx)
	return err
}

func (c *NotificationRepo) Get(ctx context.Context, id string) (*userdata.Notification, error) {
	notification := new(userdata.Notification)

	err := c.db.NewSelect().Model(notification).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return notification, nil
}

func (c *NotificationRepo) ListByUser(ctx context.Context, userId int64, offset, limit int) ([]userdata.Notification, error) {
	notifications := make([]userdata.Notification, 0, limit)

	err := c.db.NewSelect().Model(&notifications).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (c *NotificationRepo) CountByUser(ctx context.Context, userId int64) (int, error) {
	return c.db.NewSelect().Model((*userdata.Notification)(nil)).Where("user_id = ?", userId).Count(ctx)
}

// MarkRead flips a single row to read in one statement. The read = false
// guard keeps repeated calls from touching read_at again.
func (c *NotificationRepo) MarkRead(ctx context.Context, id string, readAt time.Time) (bool, error) {
	result, err := c.db.NewUpdate().Model((*userdata.Notification)(nil)).
		Set("read = ?", true).
		Set("read_at = ?", readAt).
		Where("id = ?", id).
		Where("read = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

func (c *NotificationRepo) MarkAllRead(ctx context.Context, userId int64, readAt time.Time) (int64, error) {
	result, err := c.db.NewUpdate().Model((*userdata.Notification)(nil)).
		Set("read = ?", true).
		Set("read_at = ?", readAt).
		Where("user_id = ?", userId).
		Where("read = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	affected, _ := result.RowsAffected()
	return affected, nil
}

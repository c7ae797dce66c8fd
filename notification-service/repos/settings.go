package repos

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/collabhub/collabhub-server/notification-service/models/userdata"
	"github.com/collabhub/collabhub-server/notification-service/templates"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

const settingsCacheTtl = 5 * time.Minute

type SettingsRepo struct {
	db    *bun.DB
	cache *redis.Client
}

// NewSettingsRepo wires the delivery preference store. The redis client may
// be nil, in which case every lookup goes to postgres.
func NewSettingsRepo(db *bun.DB, cache *redis.Client) *SettingsRepo {
	return &SettingsRepo{db: db, cache: cache}
}

// ForUser returns the full per-type preference map. Types without a stored
// row report enabled (default-allow).
func (c *SettingsRepo) ForUser(ctx context.Context, userId int64) (map[string]bool, error) {
	if cached := c.fromCache(ctx, userId); cached != nil {
		return cached, nil
	}

	rows := make([]userdata.NotificationSetting, 0)
	err := c.db.NewSelect().Model(&rows).Where("user_id = ?", userId).Scan(ctx)
	if err != nil {
		return nil, err
	}

	settings := make(map[string]bool, len(templates.Types()))
	for _, typ := range templates.Types() {
		settings[string(typ)] = true
	}
	for _, row := range rows {
		settings[row.Type] = row.Enabled
	}

	c.toCache(ctx, userId, settings)

	return settings, nil
}

// IsEnabled reports whether delivery of the given type is allowed for the
// user. No side effects.
func (c *SettingsRepo) IsEnabled(ctx context.Context, userId int64, notificationType string) (bool, error) {
	settings, err := c.ForUser(ctx, userId)
	if err != nil {
		return false, err
	}

	enabled, exists := settings[notificationType]
	if !exists {
		return true, nil
	}
	return enabled, nil
}

func (c *SettingsRepo) Update(ctx context.Context, userId int64, changes map[string]bool) error {
	rows := make([]userdata.NotificationSetting, 0, len(changes))
	for typ, enabled := range changes {
		rows = append(rows, userdata.NotificationSetting{
			UserId:  userId,
			Type:    typ,
			Enabled: enabled,
		})
	}

	if len(rows) == 0 {
		return nil
	}

	_, err := c.db.NewInsert().Model(&rows).
		On("CONFLICT (user_id, type) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Exec(ctx)
	if err != nil {
		return err
	}

	c.dropCache(ctx, userId)

	return nil
}

func settingsCacheKey(userId int64) string {
	return "notification-settings:" + strconv.FormatInt(userId, 10)
}

func (c *SettingsRepo) fromCache(ctx context.Context, userId int64) map[string]bool {
	if c.cache == nil {
		return nil
	}

	raw, err := c.cache.Get(ctx, settingsCacheKey(userId)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Int64("user", userId).Msg("Settings cache read failed")
		}
		return nil
	}

	settings := make(map[string]bool)
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil
	}

	return settings
}

func (c *SettingsRepo) toCache(ctx context.Context, userId int64, settings map[string]bool) {
	if c.cache == nil {
		return
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return
	}

	if err := c.cache.Set(ctx, settingsCacheKey(userId), raw, settingsCacheTtl).Err(); err != nil {
		log.Debug().Err(err).Int64("user", userId).Msg("Settings cache write failed")
	}
}

func (c *SettingsRepo) dropCache(ctx context.Context, userId int64) {
	if c.cache == nil {
		return
	}

	if err := c.cache.Del(ctx, settingsCacheKey(userId)).Err(); err != nil {
		log.Debug().Err(err).Int64("user", userId).Msg("Settings cache invalidation failed")
	}
}

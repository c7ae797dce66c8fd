package controllers

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/collabhub/collabhub-server/notification-service/delivery"
	"github.com/collabhub/collabhub-server/notification-service/models/userdata"
	"github.com/collabhub/collabhub-server/utils-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test fakes and helpers
// ==========================

type memNotificationStore struct {
	mtx  sync.Mutex
	rows map[string]*userdata.Notification
}

func newMemNotificationStore() *memNotificationStore {
	return &memNotificationStore{rows: make(map[string]*userdata.Notification)}
}

func (s *memNotificationStore) Add(_ context.Context, notification *userdata.Notification) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	clone := *notification
	s.rows[notification.Id] = &clone
	return nil
}

func (s *memNotificationStore) Get(_ context.Context, id string) (*userdata.Notification, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	row, exists := s.rows[id]
	if !exists {
		return nil, sql.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (s *memNotificationStore) ListByUser(_ context.Context, userId int64, offset, limit int) ([]userdata.Notification, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	owned := make([]userdata.Notification, 0)
	for _, row := range s.rows {
		if row.UserId == userId {
			owned = append(owned, *row)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	if offset >= len(owned) {
		return []userdata.Notification{}, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

func (s *memNotificationStore) CountByUser(_ context.Context, userId int64) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	count := 0
	for _, row := range s.rows {
		if row.UserId == userId {
			count++
		}
	}
	return count, nil
}

func (s *memNotificationStore) MarkRead(_ context.Context, id string, readAt time.Time) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	row, exists := s.rows[id]
	if !exists || row.Read {
		return false, nil
	}
	row.Read = true
	row.ReadAt = &readAt
	return true, nil
}

func (s *memNotificationStore) MarkAllRead(_ context.Context, userId int64, readAt time.Time) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var updated int64
	for _, row := range s.rows {
		if row.UserId == userId && !row.Read {
			row.Read = true
			row.ReadAt = &readAt
			updated++
		}
	}
	return updated, nil
}

type memSettingsStore struct {
	disabled map[int64][]string
}

func (s *memSettingsStore) IsEnabled(_ context.Context, userId int64, notificationType string) (bool, error) {
	for _, disabledType := range s.disabled[userId] {
		if disabledType == notificationType {
			return false, nil
		}
	}
	return true, nil
}

type memMemberStore struct {
	members map[int64][]int64
}

func (s *memMemberStore) MemberIds(_ context.Context, projectId int64) ([]int64, error) {
	return s.members[projectId], nil
}

type testEnv struct {
	app           *fiber.App
	token         string
	notifications *memNotificationStore
	settings      *memSettingsStore
	members       *memMemberStore
}

// callerUserId is the user id baked into the test JWT.
const callerUserId int64 = 7

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	utils.InitSharedConstants(key.PublicKey)

	token, err := utils.CreateJwt(utils.JwtConfig{
		User:       "7",
		ExpireIn:   time.Hour,
		Scope:      "basic",
		Subject:    "access",
		Data:       map[string]string{},
		PrivateKey: key,
	})
	require.NoError(t, err)

	env := &testEnv{
		token:         token,
		notifications: newMemNotificationStore(),
		settings:      &memSettingsStore{disabled: make(map[int64][]string)},
		members:       &memMemberStore{members: make(map[int64][]int64)},
	}

	service := delivery.NewService(env.notifications, env.settings, env.members, nil)

	env.app = fiber.New()
	router := utils.GetDefaultRouter(env.app)
	RegisterNotificationsController(router, nil, NotificationsController{Service: service})

	return env
}

func (env *testEnv) request(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+env.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := env.app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func decodeBody(t *testing.T, res *http.Response, out interface{}) {
	t.Helper()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

// ==========================
// Tests
// ==========================

func TestNotifications_RequireJwt(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(fiber.MethodGet, "/v1/notifications", nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestDeliverToUser_Created(t *testing.T) {
	env := newTestEnv(t)

	res := env.request(t, fiber.MethodPost, "/v1/users/9/notifications", fiber.Map{
		"type": "project_announcement",
		"payload": fiber.Map{
			"project_name": "Atlas",
			"message":      "Launch delayed",
		},
		"project_id": 42,
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var notification userdata.Notification
	decodeBody(t, res, &notification)

	assert.Equal(t, int64(9), notification.UserId)
	assert.Equal(t, callerUserId, *notification.SenderId)
	assert.Equal(t, "Announcement: Atlas", notification.Title)
	assert.Equal(t, "Launch delayed", notification.Body)
}

func TestDeliverToUser_MissingPayloadField(t *testing.T) {
	env := newTestEnv(t)

	res := env.request(t, fiber.MethodPost, "/v1/users/9/notifications", fiber.Map{
		"type": "project_announcement",
		"payload": fiber.Map{
			"project_name": "Atlas",
		},
	})
	require.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	var body map[string]interface{}
	decodeBody(t, res, &body)
	assert.Equal(t, "message", body["missing_field"])

	count, _ := env.notifications.CountByUser(context.Background(), 9)
	assert.Zero(t, count)
}

func TestDeliverToUser_UnknownType(t *testing.T) {
	env := newTestEnv(t)

	res := env.request(t, fiber.MethodPost, "/v1/users/9/notifications", fiber.Map{
		"type":    "carrier_pigeon",
		"payload": fiber.Map{"message": "coo"},
	})
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestDeliverToUser_SuppressedReturnsAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.settings.disabled[9] = []string{"system_alert"}

	res := env.request(t, fiber.MethodPost, "/v1/users/9/notifications", fiber.Map{
		"type":    "system_alert",
		"payload": fiber.Map{"message": "maintenance"},
	})
	assert.Equal(t, fiber.StatusAccepted, res.StatusCode)

	count, _ := env.notifications.CountByUser(context.Background(), 9)
	assert.Zero(t, count)
}

func TestDeliverToProject_ReportsFanout(t *testing.T) {
	env := newTestEnv(t)
	env.members.members[42] = []int64{10, 11, 12}
	env.settings.disabled[11] = []string{"project_announcement"}

	res := env.request(t, fiber.MethodPost, "/v1/projects/42/notifications", fiber.Map{
		"type": "project_announcement",
		"payload": fiber.Map{
			"project_name": "Atlas",
			"message":      "Standup at 10:00",
		},
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var result delivery.Fanout
	decodeBody(t, res, &result)

	assert.Len(t, result.Delivered, 2)
	assert.Equal(t, 1, result.Suppressed)
	assert.Empty(t, result.Failed)
}

func TestListNotifications_PaginatedShape(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		res := env.request(t, fiber.MethodPost, "/v1/users/7/notifications", fiber.Map{
			"type":    "system_alert",
			"payload": fiber.Map{"message": "hello"},
		})
		require.Equal(t, fiber.StatusCreated, res.StatusCode)
	}

	res := env.request(t, fiber.MethodGet, "/v1/notifications?page=1&limit=2", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var body struct {
		Items      []userdata.Notification `json:"items"`
		Total      int                     `json:"total"`
		Page       int                     `json:"page"`
		Limit      int                     `json:"limit"`
		TotalPages int                     `json:"total_pages"`
	}
	decodeBody(t, res, &body)

	assert.Len(t, body.Items, 2)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 2, body.Limit)
	assert.Equal(t, 2, body.TotalPages)
}

func TestMarkRead_OwnNotification(t *testing.T) {
	env := newTestEnv(t)

	var created userdata.Notification
	res := env.request(t, fiber.MethodPost, "/v1/users/7/notifications", fiber.Map{
		"type":    "system_alert",
		"payload": fiber.Map{"message": "hello"},
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	decodeBody(t, res, &created)

	res = env.request(t, fiber.MethodPatch, "/v1/notifications/"+created.Id, fiber.Map{"read": true})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var updated userdata.Notification
	decodeBody(t, res, &updated)
	assert.True(t, updated.Read)
	assert.NotNil(t, updated.ReadAt)
}

func TestMarkRead_OtherUsersNotificationIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	var created userdata.Notification
	res := env.request(t, fiber.MethodPost, "/v1/users/9/notifications", fiber.Map{
		"type":    "system_alert",
		"payload": fiber.Map{"message": "hello"},
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	decodeBody(t, res, &created)

	// Caller 7 does not own user 9's row; ownership is not leaked.
	res = env.request(t, fiber.MethodPatch, "/v1/notifications/"+created.Id, fiber.Map{"read": true})
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)

	stored, err := env.notifications.Get(context.Background(), created.Id)
	require.NoError(t, err)
	assert.False(t, stored.Read)
}

func TestMarkRead_ReadFalseIsRejected(t *testing.T) {
	env := newTestEnv(t)

	res := env.request(t, fiber.MethodPatch, "/v1/notifications/some-id", fiber.Map{"read": false})
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		res := env.request(t, fiber.MethodPost, "/v1/users/7/notifications", fiber.Map{
			"type":    "system_alert",
			"payload": fiber.Map{"message": "hello"},
		})
		require.Equal(t, fiber.StatusCreated, res.StatusCode)
	}

	res := env.request(t, fiber.MethodPatch, "/v1/notifications", fiber.Map{"mark_all_read": true})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var body map[string]int64
	decodeBody(t, res, &body)
	assert.Equal(t, int64(2), body["updated"])

	res = env.request(t, fiber.MethodPatch, "/v1/notifications", fiber.Map{"mark_all_read": true})
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	decodeBody(t, res, &body)
	assert.Zero(t, body["updated"])
}

func TestListTemplates(t *testing.T) {
	env := newTestEnv(t)

	res := env.request(t, fiber.MethodGet, "/v1/notifications/templates", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var body map[string]struct {
		Required []string `json:"required"`
	}
	decodeBody(t, res, &body)

	require.Contains(t, body, "project_announcement")
	assert.ElementsMatch(t, []string{"project_name", "message"}, body["project_announcement"].Required)
	require.Contains(t, body, "system_alert")
	assert.Equal(t, []string{"message"}, body["system_alert"].Required)
}

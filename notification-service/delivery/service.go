package delivery

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/collabhub/collabhub-server/notification-service/models/userdata"
	"github.com/collabhub/collabhub-server/notification-service/templates"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type NotificationStore interface {
	Add(ctx context.Context, notification *userdata.Notification) error
	Get(ctx context.Context, id string) (*userdata.Notification, error)
	ListByUser(ctx context.Context, userId int64, offset, limit int) ([]userdata.Notification, error)
	CountByUser(ctx context.Context, userId int64) (int, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userId int64, readAt time.Time) (int64, error)
}

type SettingsStore interface {
	IsEnabled(ctx context.Context, userId int64, notificationType string) (bool, error)
}

type MemberStore interface {
	MemberIds(ctx context.Context, projectId int64) ([]int64, error)
}

// Notifier forwards a persisted notification to an out-of-band channel.
// Implementations must be best-effort; the in-app record is already durable
// by the time Notify runs.
type Notifier interface {
	Notify(notification *userdata.Notification)
}

// Service runs the pipeline: resolve template, validate payload, render,
// gate per recipient, persist one row per recipient.
type Service struct {
	notifications NotificationStore
	settings      SettingsStore
	members       MemberStore
	notifier      Notifier
	now           func() time.Time
}

func NewService(notifications NotificationStore, settings SettingsStore, members MemberStore, notifier Notifier) *Service {
	return &Service{
		notifications: notifications,
		settings:      settings,
		members:       members,
		notifier:      notifier,
		now:           time.Now,
	}
}

// FailedRecipient is one isolated fan-out failure in a Fanout aggregate.
type FailedRecipient struct {
	UserId int64  `json:"user_id"`
	Error  string `json:"error"`
}

// Fanout reports a project-wide delivery. Failed entries never abort the
// rest of the batch.
type Fanout struct {
	Delivered  []*userdata.Notification `json:"delivered"`
	Suppressed int                      `json:"suppressed"`
	Failed     []FailedRecipient        `json:"failed,omitempty"`
}

// DeliverToUser creates at most one notification row. A recipient whose
// settings disable the type gets no row and no error. Validation and render
// failures abort before anything is written.
func (s *Service) DeliverToUser(ctx context.Context, recipientId int64, senderId *int64, notificationType templates.Type, payload map[string]interface{}, projectId *int64) (*userdata.Notification, error) {
	tmpl, err := templates.Get(notificationType)
	if err != nil {
		return nil, err
	}

	if err := tmpl.ValidatePayload(payload); err != nil {
		return nil, err
	}

	title, body, err := tmpl.Render(payload)
	if err != nil {
		return nil, err
	}

	enabled, err := s.settings.IsEnabled(ctx, recipientId, string(notificationType))
	if err != nil {
		return nil, err
	}
	if !enabled {
		log.Debug().Int64("user", recipientId).Str("type", string(notificationType)).Msg("Delivery suppressed by settings")
		return nil, nil
	}

	notification := s.newNotification(recipientId, senderId, projectId, notificationType, title, body)
	if err := s.notifications.Add(ctx, notification); err != nil {
		return nil, err
	}

	s.dispatch(notification)

	return notification, nil
}

// DeliverToProject renders once and fans the shared title/body out to every
// project member. Each recipient is an independent unit of work: gating and
// persistence failures are collected, never propagated to siblings. Empty
// membership is a successful no-op.
func (s *Service) DeliverToProject(ctx context.Context, projectId int64, senderId *int64, notificationType templates.Type, payload map[string]interface{}) (*Fanout, error) {
	tmpl, err := templates.Get(notificationType)
	if err != nil {
		return nil, err
	}

	if err := tmpl.ValidatePayload(payload); err != nil {
		return nil, err
	}

	title, body, err := tmpl.Render(payload)
	if err != nil {
		return nil, err
	}

	memberIds, err := s.members.MemberIds(ctx, projectId)
	if err != nil {
		return nil, err
	}

	result := &Fanout{Delivered: make([]*userdata.Notification, 0, len(memberIds))}
	if len(memberIds) == 0 {
		return result, nil
	}

	var (
		mtx sync.Mutex
		wg  sync.WaitGroup
	)

	for _, memberId := range memberIds {
		wg.Add(1)

		go func(recipientId int64) {
			defer wg.Done()

			enabled, err := s.settings.IsEnabled(ctx, recipientId, string(notificationType))
			if err != nil {
				mtx.Lock()
				result.Failed = append(result.Failed, FailedRecipient{UserId: recipientId, Error: RecipientError{UserId: recipientId, Err: err}.Error()})
				mtx.Unlock()
				return
			}

			if !enabled {
				mtx.Lock()
				result.Suppressed++
				mtx.Unlock()
				return
			}

			notification := s.newNotification(recipientId, senderId, &projectId, notificationType, title, body)
			if err := s.notifications.Add(ctx, notification); err != nil {
				log.Warn().Err(err).Int64("user", recipientId).Msg("Fan-out write failed")
				mtx.Lock()
				result.Failed = append(result.Failed, FailedRecipient{UserId: recipientId, Error: RecipientError{UserId: recipientId, Err: err}.Error()})
				mtx.Unlock()
				return
			}

			s.dispatch(notification)

			mtx.Lock()
			result.Delivered = append(result.Delivered, notification)
			mtx.Unlock()
		}(memberId)
	}

	wg.Wait()

	return result, nil
}

// MarkRead flips one notification owned by the caller. Marking an already
// read notification succeeds without touching read_at.
func (s *Service) MarkRead(ctx context.Context, id string, userId int64) (*userdata.Notification, error) {
	notification, err := s.notifications.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if notification.UserId != userId {
		return nil, ErrForbidden
	}

	readAt := s.now().UTC()
	changed, err := s.notifications.MarkRead(ctx, id, readAt)
	if err != nil {
		return nil, err
	}

	if changed {
		notification.Read = true
		notification.ReadAt = &readAt
	}

	return notification, nil
}

// MarkAllRead returns the number of rows flipped; zero unread rows is fine.
func (s *Service) MarkAllRead(ctx context.Context, userId int64) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userId, s.now().UTC())
}

func (s *Service) ListForUser(ctx context.Context, userId int64, page, limit int) ([]userdata.Notification, int, error) {
	notifications, err := s.notifications.ListByUser(ctx, userId, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.notifications.CountByUser(ctx, userId)
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (s *Service) newNotification(recipientId int64, senderId, projectId *int64, notificationType templates.Type, title, body string) *userdata.Notification {
	return &userdata.Notification{
		Id:        uuid.NewString(),
		UserId:    recipientId,
		SenderId:  senderId,
		ProjectId: projectId,
		Type:      string(notificationType),
		Title:     title,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
}

func (s *Service) dispatch(notification *userdata.Notification) {
	if s.notifier != nil {
		s.notifier.Notify(notification)
	}
}

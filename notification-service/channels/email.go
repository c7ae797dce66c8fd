package channels

import (
	"context"
	"time"

	"github.com/collabhub/collabhub-server/notification-service/models/userdata"
	"github.com/collabhub/collabhub-server/utils-go"
	"github.com/rs/zerolog/log"
	mail "github.com/xhit/go-simple-mail/v2"
)

const emailTemplate = `<html><body><h2>{{title}}</h2><p>{{body}}</p></body></html>`

type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*userdata.User, error)
}

// EmailChannel mirrors persisted notifications to the recipient's mailbox.
// Sends are fire-and-forget: the in-app row is the source of truth and a
// failed send is only logged.
type EmailChannel struct {
	client *mail.SMTPClient
	users  UserDirectory
	from   string
}

func NewEmailChannel(client *mail.SMTPClient, users UserDirectory, from string) *EmailChannel {
	return &EmailChannel{client: client, users: users, from: from}
}

func (c *EmailChannel) Notify(notification *userdata.Notification) {
	go c.send(notification)
}

func (c *EmailChannel) send(notification *userdata.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := c.users.GetUser(ctx, notification.UserId)
	if err != nil {
		log.Warn().Err(err).Int64("user", notification.UserId).Msg("Email channel could not resolve recipient")
		return
	}

	if len(user.Email) == 0 {
		return
	}

	email := mail.NewMSG()
	email.SetFrom(c.from).
		AddTo(user.Email).
		SetSubject(notification.Title).
		SetBody(mail.TextHTML, c.Body(notification))

	if email.Error != nil {
		log.Warn().Err(email.Error).Str("notification", notification.Id).Msg("Email channel message build failed")
		return
	}

	if err := email.Send(c.client); err != nil {
		log.Warn().Err(err).Str("notification", notification.Id).Msg("Email channel send failed")
	}
}

// Body wraps the rendered notification in the channel's html shell.
func (c *EmailChannel) Body(notification *userdata.Notification) string {
	return utils.Format(emailTemplate, map[string]string{
		"{{title}}": notification.Title,
		"{{body}}":  notification.Body,
	})
}

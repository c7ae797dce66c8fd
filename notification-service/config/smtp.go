package config

import (
	"crypto/tls"
	"time"

	"github.com/rs/zerolog/log"
	mail "github.com/xhit/go-simple-mail/v2"
)

// ProvideSmtp connects the mail channel's client. Returns nil when the email
// channel is disabled; in-app delivery never depends on it.
func ProvideSmtp(config *Config) (*mail.SMTPClient, error) {
	if !config.EmailConfig.Enabled {
		log.Info().Msg("Email channel disabled")
		return nil, nil
	}

	server := mail.NewSMTPClient()
	server.Host = config.EmailConfig.SmtpHost
	server.Port = config.EmailConfig.SmtpPort
	server.Username = config.EmailConfig.SmtpUser
	server.Password = config.EmailConfig.SmtpPassword
	server.Encryption = mail.EncryptionSTARTTLS
	server.TLSConfig = &tls.Config{InsecureSkipVerify: config.EmailConfig.SmtpSkipInsecure}
	server.SendTimeout = 10 * time.Second
	server.ConnectTimeout = 10 * time.Second
	server.KeepAlive = true

	smtpClient, err := server.Connect()
	if err != nil {
		return nil, err
	}

	return smtpClient, nil
}

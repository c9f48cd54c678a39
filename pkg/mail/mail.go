package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/mailbox-report/pkg/mbxreport/config"
	"github.com/telekom/mailbox-report/pkg/metrics"
)

// ErrTransport wraps the last SMTP error once all retries are exhausted.
var ErrTransport = errors.New("mail transport failed")

const (
	keyringService = "mbxreport"
	passwordEnvVar = "MBXREPORT_SMTP_PASSWORD"

	maxBackoffMs = 32000
)

type Sender interface {
	Send(receivers []string, subject, body string) error
	GetHost() string
	GetPort() int
}

type sender struct {
	dialer         *gomail.Dialer
	senderAddress  string
	senderName     string
	retryCount     int
	retryBackoffMs int
	log            *zap.SugaredLogger
}

func NewSender(cfg config.MailSettings, log *zap.SugaredLogger) Sender {
	log = log.Named("mail")
	log.Infow("Initializing mail sender", "host", cfg.Host, "port", cfg.Port, "user", cfg.Username)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, resolvePassword(cfg, log))
	if cfg.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	senderAddr := cfg.SenderAddress
	if senderAddr == "" {
		senderAddr = cfg.Username
	}
	senderName := cfg.SenderName
	if senderName == "" {
		senderName = "Mailbox Report"
	}

	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}
	retryBackoffMs := cfg.RetryBackoffMs
	if retryBackoffMs <= 0 {
		retryBackoffMs = 100
	}

	return &sender{
		dialer:         d,
		senderAddress:  senderAddr,
		senderName:     senderName,
		retryCount:     retryCount,
		retryBackoffMs: retryBackoffMs,
		log:            log,
	}
}

// resolvePassword prefers the config value, then the environment, then the
// OS keyring entry for the SMTP username.
func resolvePassword(cfg config.MailSettings, log *zap.SugaredLogger) string {
	if cfg.Password != "" {
		return cfg.Password
	}
	if env := os.Getenv(passwordEnvVar); env != "" {
		return env
	}
	if cfg.Username != "" {
		secret, err := keyring.Get(keyringService, cfg.Username)
		if err == nil {
			return secret
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			log.Warnw("Failed to read SMTP password from keyring", "user", cfg.Username, "error", err)
		}
	}
	return ""
}

func (s *sender) Send(receivers []string, subject, body string) error {
	if len(receivers) == 0 {
		return fmt.Errorf("%w: no receivers", ErrTransport)
	}
	s.log.Infow("Sending report mail", "receivers", len(receivers), "subject", subject)

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.senderAddress, s.senderName)
	msg.SetHeader("To", receivers...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	var lastErr error
	backoffMs := s.retryBackoffMs

	for attempt := 0; attempt <= s.retryCount; attempt++ {
		err := s.dialer.DialAndSend(msg)
		if err == nil {
			s.log.Infow("Mail sent", "receivers", len(receivers), "attempt", attempt+1)
			metrics.MailSendSuccess.WithLabelValues(s.GetHost()).Inc()
			return nil
		}

		lastErr = err
		if attempt < s.retryCount {
			s.log.Warnw("Send attempt failed, retrying", "attempt", attempt+1, "backoffMs", backoffMs, "error", err)
			time.Sleep(time.Duration(backoffMs) * time.Millisecond)
			backoffMs = int(math.Min(float64(backoffMs)*2, maxBackoffMs))
		}
	}

	s.log.Errorw("Failed to send mail", "attempts", s.retryCount+1, "error", lastErr)
	metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
	return fmt.Errorf("%w after %d attempts: %v", ErrTransport, s.retryCount+1, lastErr)
}

func (s *sender) GetHost() string {
	return s.dialer.Host
}

func (s *sender) GetPort() int {
	return s.dialer.Port
}

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/timmy/jobscout/internal/logger"
)

// KeyringService groups jobscout secrets in the OS keychain.
const KeyringService = "jobscout"

// ErrNoCredentials means delivery was skipped because no sender address or
// password is configured.
var ErrNoCredentials = errors.New("email credentials not configured")

// Message is one report email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Sender delivers report emails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Subject returns the subject line for a run.
func Subject(runDate string, matched, newJobs int) string {
	return fmt.Sprintf("Job Matches %s: %d matched, %d new", runDate, matched, newJobs)
}

// SMTPConfig holds SMTP delivery settings.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
	To       string
	// KeyringAccount is looked up when Password is empty; From is used when unset.
	KeyringAccount string
}

// SMTPSender sends multipart text/HTML mail over SMTP with STARTTLS.
type SMTPSender struct {
	cfg      SMTPConfig
	lookup   func(service, account string) (string, error)
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.To == "" {
		cfg.To = cfg.From
	}
	return &SMTPSender{
		cfg:      cfg,
		lookup:   keyring.Get,
		sendMail: smtp.SendMail,
	}
}

// password returns the configured password or the keyring entry.
func (s *SMTPSender) password() (string, error) {
	if strings.TrimSpace(s.cfg.Password) != "" {
		return s.cfg.Password, nil
	}
	account := s.cfg.KeyringAccount
	if account == "" {
		account = s.cfg.From
	}
	if account == "" {
		return "", ErrNoCredentials
	}
	pw, err := s.lookup(KeyringService, account)
	if err != nil || strings.TrimSpace(pw) == "" {
		return "", ErrNoCredentials
	}
	return pw, nil
}

// Send delivers msg. It returns ErrNoCredentials without connecting when
// the sender is not configured.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.From == "" {
		return ErrNoCredentials
	}
	pw, err := s.password()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := BuildMessage(s.cfg.From, s.cfg.To, msg)
	if err != nil {
		return err
	}

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.From, pw, s.cfg.Host)
	if err := s.sendMail(addr, auth, s.cfg.From, []string{s.cfg.To}, body); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	logger.FromContext(ctx).Infof("Email sent: %q to %s", msg.Subject, s.cfg.To)
	return nil
}

// BuildMessage renders a multipart/alternative RFC 5322 message.
func BuildMessage(from, to string, msg Message) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType, content string
	}{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", p.contentType)
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create mime part: %w", err)
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("write mime part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("close mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", from)
	fmt.Fprintf(&out, "To: %s\r\n", to)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%s\r\n", mw.Boundary())
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

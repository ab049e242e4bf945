package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
)

func TestSubject(t *testing.T) {
	if got := Subject("2024-06-01", 5, 3); got != "Job Matches 2024-06-01: 5 matched, 3 new" {
		t.Errorf("Subject = %q", got)
	}
}

func TestBuildMessage(t *testing.T) {
	raw, err := BuildMessage("me@example.com", "you@example.com", Message{
		Subject: "Job Matches 2024-06-01: 1 matched, 1 new",
		Text:    "# Report",
		HTML:    "<h1>Report</h1>",
	})
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if m.Header.Get("To") != "you@example.com" {
		t.Errorf("To = %q", m.Header.Get("To"))
	}
	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/alternative" {
		t.Fatalf("content type = %q, %v", mediaType, err)
	}

	mr := multipart.NewReader(m.Body, params["boundary"])
	var types, bodies []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		b, _ := io.ReadAll(p)
		types = append(types, p.Header.Get("Content-Type"))
		bodies = append(bodies, string(b))
	}
	if len(types) != 2 || !strings.HasPrefix(types[0], "text/plain") || !strings.HasPrefix(types[1], "text/html") {
		t.Fatalf("parts = %v", types)
	}
	if bodies[0] != "# Report" || bodies[1] != "<h1>Report</h1>" {
		t.Errorf("bodies = %q", bodies)
	}
}

func TestSMTPSenderCredentials(t *testing.T) {
	tests := []struct {
		name     string
		cfg      SMTPConfig
		keyring  map[string]string
		wantErr  error
		wantSent bool
	}{
		{"no address", SMTPConfig{Password: "pw"}, nil, ErrNoCredentials, false},
		{"no password anywhere", SMTPConfig{From: "me@example.com"}, nil, ErrNoCredentials, false},
		{"password from config", SMTPConfig{From: "me@example.com", Password: "pw"}, nil, nil, true},
		{"password from keyring", SMTPConfig{From: "me@example.com"}, map[string]string{"me@example.com": "kpw"}, nil, true},
		{"custom keyring account", SMTPConfig{From: "me@example.com", KeyringAccount: "gmail"}, map[string]string{"gmail": "kpw"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSMTPSender(tt.cfg)
			s.lookup = func(service, account string) (string, error) {
				if service != KeyringService {
					t.Errorf("keyring service = %q", service)
				}
				if pw, ok := tt.keyring[account]; ok {
					return pw, nil
				}
				return "", errors.New("secret not found in keyring")
			}
			var sentTo []string
			var sentAddr string
			s.sendMail = func(addr string, _ smtp.Auth, _ string, to []string, _ []byte) error {
				sentAddr = addr
				sentTo = to
				return nil
			}

			err := s.Send(context.Background(), Message{Subject: "s", Text: "t", HTML: "h"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if (sentTo != nil) != tt.wantSent {
				t.Fatalf("sent = %v, want %v", sentTo != nil, tt.wantSent)
			}
			if tt.wantSent {
				if sentAddr != "smtp.gmail.com:587" {
					t.Errorf("addr = %q", sentAddr)
				}
				if len(sentTo) != 1 || sentTo[0] != "me@example.com" {
					t.Errorf("recipient defaults to sender, got %v", sentTo)
				}
			}
		})
	}
}

func TestSMTPSenderSendError(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{From: "me@example.com", Password: "pw", To: "you@example.com"})
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("535 auth failed")
	}
	err := s.Send(context.Background(), Message{Subject: "s"})
	if err == nil || !strings.Contains(err.Error(), "535") {
		t.Errorf("err = %v", err)
	}
}

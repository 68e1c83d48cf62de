package credlock

import (
	"context"
	"log"
	"net/smtp"
)

// SMTPMailer is a [Mailer] over plain SMTP with AUTH PLAIN. For providers
// needing OAuth or an HTTP API, implement [Mailer] directly.
type SMTPMailer struct {
	Addr     string // host:port
	Host     string // host only, for AUTH
	From     string
	Username string
	Password string
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := []byte(
		"From: " + m.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body + "\r\n")

	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	return smtp.SendMail(m.Addr, auth, m.From, []string{to}, msg)
}

// LogSMSSender is an [SMSSender] that writes messages to the process log
// instead of a carrier. A development stand-in.
type LogSMSSender struct{}

func (LogSMSSender) Send(_ context.Context, to, body string) error {
	log.Print("credlock: sms to ", to, ": ", body)
	return nil
}

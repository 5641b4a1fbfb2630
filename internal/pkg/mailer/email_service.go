package mailer

import (
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendAccessLink(toEmail, recipientName, documentTitle, link string, expiresAt time.Time) error
	SendDocumentOutcome(toEmail, documentTitle, status string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: username,
		senderName:  senderName,
	}
}

func (s *emailService) newMessage(toEmail, subject string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	return m
}

func (s *emailService) SendAccessLink(toEmail, recipientName, documentTitle, link string, expiresAt time.Time) error {
	m := s.newMessage(toEmail, fmt.Sprintf("Please review and sign: %s", documentTitle))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Hello %s,</h2>
			<p>You have been asked to act on <strong>%s</strong>.</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Open Document</a>
			<p>Or copy this link:</p>
			<p>%s</p>
			<p>This link expires on %s.</p>
			<p>If you were not expecting this, please ignore this email.</p>
		</div>
	`, html.EscapeString(recipientName), html.EscapeString(documentTitle), link, link, expiresAt.UTC().Format(time.RFC1123))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send access link to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Access link sent to %s\n", toEmail)
	return nil
}

func (s *emailService) SendDocumentOutcome(toEmail, documentTitle, status string) error {
	m := s.newMessage(toEmail, fmt.Sprintf("%s is %s", documentTitle, status))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Signing workflow finished</h2>
			<p><strong>%s</strong> is now <strong>%s</strong>.</p>
		</div>
	`, html.EscapeString(documentTitle), html.EscapeString(status))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send outcome to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Outcome sent to %s\n", toEmail)
	return nil
}

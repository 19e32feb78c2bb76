package notifier

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"library-backend/pkg/config"
)

// SMTPSender delivers notifications through an SMTP relay.
type SMTPSender struct {
	dialer  *gomail.Dialer
	from    string
	appName string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:    cfg.SMTPFrom,
		appName: cfg.AppName,
	}
}

func (s *SMTPSender) Send(n *Notification) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.appName)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", n.Text)
	m.AddAlternative("text/html", n.Body)
	return s.dialer.DialAndSend(m)
}

// LogSender is used when SMTP is not configured; notifications are logged
// instead of delivered.
type LogSender struct{}

func (LogSender) Send(n *Notification) error {
	log.Printf("Email not configured, would send %q to %s", n.Subject, n.To)
	return nil
}

// NewSender picks SMTP when configured and falls back to log-only.
func NewSender(cfg *config.Config) Sender {
	if cfg.SMTPHost == "" || cfg.SMTPUser == "" {
		log.Println("SMTP not configured, notifications will be logged only")
		return LogSender{}
	}
	return NewSMTPSender(cfg)
}

func wrapHTML(title, body string) string {
	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:640px;margin:0 auto">
<h2>%s</h2>
<div style="font-size:14px;line-height:1.6">%s</div>
</div>`, title, body)
}

func WelcomeEmail(to, name string) *Notification {
	return &Notification{
		To:      to,
		Subject: "Welcome to the library",
		Body: wrapHTML(fmt.Sprintf("Welcome, %s!", name),
			"<p>Your account has been created successfully.</p><p>You can now browse the catalog, borrow books and leave reviews.</p>"),
		Text: fmt.Sprintf("Welcome, %s! Your account has been created successfully.", name),
	}
}

func PaymentStatusEmail(to, name, status string) *Notification {
	return &Notification{
		To:      to,
		Subject: fmt.Sprintf("Membership payment %s", status),
		Body: wrapHTML("Membership payment update",
			fmt.Sprintf("<p>Hi %s, your membership payment for this month has been <b>%s</b>.</p>", name, status)),
		Text: fmt.Sprintf("Hi %s, your membership payment for this month has been %s.", name, status),
	}
}

func ReturnRequestedEmail(to, name, bookTitle string) *Notification {
	return &Notification{
		To:      to,
		Subject: "Return request received",
		Body: wrapHTML("Return request received",
			fmt.Sprintf("<p>Hi %s, your return request for <b>%s</b> is pending librarian approval.</p>", name, bookTitle)),
		Text: fmt.Sprintf("Hi %s, your return request for %q is pending librarian approval.", name, bookTitle),
	}
}

func ReturnApprovedEmail(to, name, bookTitle string, overdue bool) *Notification {
	if overdue {
		return &Notification{
			To:      to,
			Subject: "Return approved (overdue)",
			Body: wrapHTML("Return approved",
				fmt.Sprintf("<p>Hi %s, your return of <b>%s</b> has been approved. The book was returned after its due date and the loan is recorded as overdue.</p>", name, bookTitle)),
			Text: fmt.Sprintf("Hi %s, your return of %q has been approved. The loan is recorded as overdue.", name, bookTitle),
		}
	}
	return &Notification{
		To:      to,
		Subject: "Return approved",
		Body: wrapHTML("Return approved",
			fmt.Sprintf("<p>Hi %s, your return of <b>%s</b> has been approved. Thanks for returning it on time.</p>", name, bookTitle)),
		Text: fmt.Sprintf("Hi %s, your return of %q has been approved.", name, bookTitle),
	}
}

func ReturnDeclinedEmail(to, name, bookTitle string) *Notification {
	return &Notification{
		To:      to,
		Subject: "Return request declined",
		Body: wrapHTML("Return request declined",
			fmt.Sprintf("<p>Hi %s, your return request for <b>%s</b> was declined. The loan remains active, please contact the library desk.</p>", name, bookTitle)),
		Text: fmt.Sprintf("Hi %s, your return request for %q was declined. The loan remains active.", name, bookTitle),
	}
}

package main

import (
	"fmt"
	"io"
	"regexp"

	"github.com/go-gomail/gomail"
)

// ---------------------------------------------------------------------------
// Email
// ---------------------------------------------------------------------------

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Attachment is an in-memory file attached to an outgoing message.
type Attachment struct {
	Filename string
	Data     []byte
}

// mailDialer is satisfied by *gomail.Dialer.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends submitted documents to school mailboxes.
type Mailer struct {
	from     string
	fromName string
	dialer   mailDialer
}

func newMailer(smtp SMTPConfig, email EmailConfig) *Mailer {
	return &Mailer{
		from:     email.From,
		fromName: email.FromName,
		dialer:   gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password),
	}
}

// buildMessage assembles the multipart message: a plain text body and the
// given attachments.
func (m *Mailer) buildMessage(to, subject, body string, attachments ...Attachment) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	for _, a := range attachments {
		data := a.Data
		msg.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {`application/pdf; name="` + a.Filename + `"`},
			}),
		)
	}
	return msg
}

// sendEmail sends one message to a single recipient. Failures are returned
// as *EmailDispatchError.
func (m *Mailer) sendEmail(to, subject, body string, attachments ...Attachment) error {
	if !emailRegex.MatchString(to) {
		return &EmailDispatchError{Recipient: to, Err: fmt.Errorf("invalid recipient address")}
	}

	msg := m.buildMessage(to, subject, body, attachments...)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return &EmailDispatchError{Recipient: to, Err: err}
	}
	return nil
}

// SendDocument mails the rendered confirmation to the school.
func (m *Mailer) SendDocument(doc *RenderedDocument, to string) error {
	return m.sendEmail(to,
		buildSubject(doc.Filename),
		buildEmailBody(doc.Filename, doc.Reference),
		Attachment{Filename: doc.AttachmentName, Data: doc.PDF},
	)
}

package email

import (
	"context"
	"errors"
	"io"
	"net/textproto"
	"strings"
	"time"

	"kshetranetra/models"

	"github.com/apex/log"
	gomail "gopkg.in/gomail.v2"
)

// SMTPSender submits the dispatch to an SMTP server over an implicit-TLS
// connection, authenticated with the configured sender identity. All
// credentials come from configuration; none live in source.
type SMTPSender struct {
	host     string
	port     int
	sender   string
	password string
}

// NewSMTPSender creates the SMTP transport
func NewSMTPSender(host string, port int, sender, password string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		sender:   sender,
		password: password,
	}
}

// Send submits the dispatch in a single attempt
func (s *SMTPSender) Send(_ context.Context, dispatch models.EmailDispatch) (*models.DeliveryResult, error) {
	if err := validateDispatch(dispatch); err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.sender)
	m.SetHeader("To", dispatch.Recipient)
	m.SetHeader("Subject", dispatch.Subject)
	m.SetBody("text/plain", dispatch.Body)
	m.Attach(AttachmentName,
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(dispatch.Report.Bytes)
			return err
		}),
		gomail.SetHeader(map[string][]string{"Content-Type": {attachmentType}}),
	)

	dialer := gomail.NewDialer(s.host, s.port, s.sender, s.password)
	dialer.SSL = true

	if err := dialer.DialAndSend(m); err != nil {
		sendErr := classifySMTPError(err)
		log.WithError(err).Warnf("Email to %s failed (%s)", dispatch.Recipient, sendErr.Kind)
		return nil, sendErr
	}

	log.Infof("Email sent to %s", dispatch.Recipient)
	return &models.DeliveryResult{
		Recipient: dispatch.Recipient,
		SentAt:    time.Now(),
		Message:   "report emailed to " + dispatch.Recipient,
	}, nil
}

// classifySMTPError maps an SMTP failure onto the send-error taxonomy using
// the server reply code when one is present
func classifySMTPError(err error) *models.SendError {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 530, 534, 535:
			return models.NewSendError(models.SendAuthentication, err)
		case 450, 513, 550, 551, 553:
			return models.NewSendError(models.SendRecipient, err)
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "auth") || strings.Contains(msg, "username and password") {
		return models.NewSendError(models.SendAuthentication, err)
	}

	return models.NewSendError(models.SendTransport, err)
}

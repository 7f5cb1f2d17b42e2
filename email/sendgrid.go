package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kshetranetra/models"

	"github.com/apex/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender submits the dispatch through the SendGrid v3 API
type SendGridSender struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

// NewSendGridSender creates the SendGrid transport
func NewSendGridSender(apiKey, fromName, fromEmail string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// Send submits the dispatch in a single attempt
func (s *SendGridSender) Send(_ context.Context, dispatch models.EmailDispatch) (*models.DeliveryResult, error) {
	if err := validateDispatch(dispatch); err != nil {
		return nil, err
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(dispatch.Recipient, dispatch.Recipient)

	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(dispatch.Report.Bytes))
	attachment.SetType(attachmentType)
	attachment.SetFilename(AttachmentName)
	attachment.SetDisposition("attachment")

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = dispatch.Subject

	p := mail.NewPersonalization()
	p.AddTos(to)
	message.AddPersonalizations(p)

	message.AddContent(mail.NewContent("text/plain", dispatch.Body))
	message.AddAttachment(attachment)

	response, err := s.client.Send(message)
	if err != nil {
		sendErr := models.NewSendError(models.SendTransport, err)
		log.WithError(err).Warnf("Email to %s failed (%s)", dispatch.Recipient, sendErr.Kind)
		return nil, sendErr
	}

	if response.StatusCode >= http.StatusBadRequest {
		sendErr := classifySendGridStatus(response.StatusCode, response.Body)
		log.Warnf("Email to %s failed (%s): status %d", dispatch.Recipient, sendErr.Kind, response.StatusCode)
		return nil, sendErr
	}

	log.Infof("Email sent to %s, status %d", dispatch.Recipient, response.StatusCode)
	return &models.DeliveryResult{
		Recipient: dispatch.Recipient,
		SentAt:    time.Now(),
		Message:   "report emailed to " + dispatch.Recipient,
	}, nil
}

// classifySendGridStatus maps an API rejection onto the send-error taxonomy
func classifySendGridStatus(status int, body string) *models.SendError {
	err := fmt.Errorf("sendgrid returned status %d: %s", status, body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.NewSendError(models.SendAuthentication, err)
	case status < http.StatusInternalServerError && strings.Contains(strings.ToLower(body), "email"):
		return models.NewSendError(models.SendRecipient, err)
	default:
		return models.NewSendError(models.SendTransport, err)
	}
}

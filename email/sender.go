// Package email distributes generated reports as PDF attachments. Two
// transports exist: SMTP over an encrypted connection (default) and
// SendGrid. One transport is active per deployment.
package email

import (
	"context"
	"fmt"

	"kshetranetra/models"
)

const (
	// AttachmentName is the fixed filename of the attached report
	AttachmentName = "kshetranetra_report.pdf"

	attachmentType = "application/pdf"

	subject = "KshetraNetra Alert Report"

	bodyTemplate = `Dear User,

Please find attached the official satellite change detection report for your selected AOI.

T1 Date: %s
T2 Date: %s

This report has been auto-generated by KshetraNetra.

Jai Hind
`
)

// Sender submits a report dispatch to the mail transport. One attempt per
// call, no retries; every failure comes back as a classified
// *models.SendError (or a local validation error raised before any
// transport work).
type Sender interface {
	Send(ctx context.Context, dispatch models.EmailDispatch) (*models.DeliveryResult, error)
}

// NewDispatch composes the fixed-template dispatch for a report
func NewDispatch(recipient string, rep *models.Report, t1, t2 models.CaptureMoment) models.EmailDispatch {
	return models.EmailDispatch{
		Recipient: recipient,
		Subject:   subject,
		Body:      fmt.Sprintf(bodyTemplate, t1.Format(), t2.Format()),
		Report:    rep,
	}
}

// validateDispatch runs the local checks that must fail before any
// transport call is attempted
func validateDispatch(dispatch models.EmailDispatch) error {
	if dispatch.Recipient == "" {
		return models.ErrEmptyRecipient
	}
	if dispatch.Report == nil || len(dispatch.Report.Bytes) == 0 {
		return models.ErrNoReport
	}
	return nil
}

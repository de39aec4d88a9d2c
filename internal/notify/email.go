package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Email is one outgoing HTML message.
type Email struct {
	From     string
	FromName string
	To       string
	Subject  string
	HTML     string
}

func (e Email) validate() error {
	if e.From == "" || e.To == "" {
		return errors.New("sender and recipient are required")
	}
	return nil
}

func (e Email) fromHeader() string {
	if e.FromName == "" {
		return e.From
	}
	return fmt.Sprintf("%s <%s>", e.FromName, e.From)
}

// EmailSender delivers an Email.
type EmailSender interface {
	Send(ctx context.Context, e Email) error
}

// SESAPI is the slice of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends through Amazon SES.
type SESSender struct {
	client SESAPI
	logger *slog.Logger
}

func NewSESSender(client SESAPI, logger *slog.Logger) *SESSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SESSender{client: client, logger: logger}
}

func (s *SESSender) Send(ctx context.Context, e Email) error {
	if err := e.validate(); err != nil {
		return err
	}
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(e.fromHeader()),
		Destination:      &types.Destination{ToAddresses: []string{e.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(e.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	s.logger.Info("notify.ses.ok", "to", e.To, "message_id", aws.ToString(out.MessageId))
	return nil
}

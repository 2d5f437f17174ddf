package services

import (
	"context"
	"fmt"

	"quicklearner/config"
	"quicklearner/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer dispatches one message. Failures are returned to the caller and
// never retried.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESMailer struct {
	client sesAPI
	sender string
	log    *logger.Logger
}

func NewSESMailer(ctx context.Context, region, sender string, log *logger.Logger) (*SESMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{
		client: sesv2.NewFromConfig(awsCfg),
		sender: sender,
		log:    log.With("service", "SESMailer"),
	}, nil
}

func (m *SESMailer) Send(ctx context.Context, msg Email) error {
	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		m.log.Error("SES send failed", "to", msg.To, "error", err)
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	m.log.Info("Email sent", "to", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log.With("service", "LogMailer")}
}

func (m *LogMailer) Send(_ context.Context, msg Email) error {
	m.log.Info("Email (not sent)", "to", msg.To, "subject", msg.Subject, "body", msg.HTML)
	return nil
}

// NewMailer builds the mailer named by cfg.Email.Provider.
func NewMailer(ctx context.Context, cfg *config.Config, log *logger.Logger) (Mailer, error) {
	if cfg.Email.Provider == "ses" {
		return NewSESMailer(ctx, cfg.Email.Region, cfg.Email.Sender, log)
	}
	return NewLogMailer(log), nil
}

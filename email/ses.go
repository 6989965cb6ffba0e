package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"waitlist-intake/pkg/waitlist"
)

const defaultSESRegion = "us-east-1"

// sesAPI is the subset of the SES v2 client used for delivery.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESProvider sends emails via AWS SES.
type SESProvider struct {
	client   sesAPI
	logger   *slog.Logger
	fromAddr string
	fromName string
}

// NewSESProvider creates an SES provider. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewSESProvider(ctx context.Context, region, accessKey, secretKey, fromAddr, fromName string, logger *slog.Logger) (*SESProvider, error) {
	if region == "" {
		region = defaultSESRegion
	}
	if (accessKey == "") != (secretKey == "") {
		missing := "AWS_SES_SECRET_KEY"
		if accessKey == "" {
			missing = "AWS_SES_ACCESS_KEY"
		}
		return nil, &waitlist.ConfigError{Component: "ses", Missing: []string{missing}}
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" {
		loadOpts = append(loadOpts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSESProvider(sesv2.NewFromConfig(cfg), fromAddr, fromName, logger), nil
}

func newSESProvider(client sesAPI, fromAddr, fromName string, logger *slog.Logger) *SESProvider {
	return &SESProvider{
		client:   client,
		logger:   logger,
		fromAddr: fromAddr,
		fromName: fromName,
	}
}

// Send sends an email via SES.
func (s *SESProvider) Send(ctx context.Context, msg waitlist.Message) error {
	fromAddr, fromName := senderAddress(msg.From, s.fromAddr, s.fromName)

	body := &types.Body{}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")}
	}
	if msg.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")}
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(formatSender(fromAddr, fromName)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}

	s.logger.Info("SES API request starting",
		"endpoint", "SendEmail",
		"to", waitlist.RedactEmail(msg.To))

	startTime := time.Now()
	result, err := s.client.SendEmail(ctx, input)
	duration := time.Since(startTime)
	if err != nil {
		s.logger.Warn("SES API send failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	s.logger.Info("SES API request completed",
		"endpoint", "SendEmail",
		"message_id", messageID,
		"duration_ms", duration.Milliseconds(),
		"status", "success")
	return nil
}

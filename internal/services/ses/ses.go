// Package ses provides email notification services via AWS SES
package ses

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/utils"
)

// SendEmailAPI is the subset of the SES client the service uses.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Service handles SES email operations
type Service struct {
	client    SendEmailAPI
	fromEmail string
	notifyTo  string
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// DisbursementNotification describes a newly opened installment plan.
type DisbursementNotification struct {
	LoanID        string
	BorrowerID    string
	ProductName   string
	LoanAmount    decimal.Decimal
	ServiceFee    decimal.Decimal
	DisbursedDate time.Time
	DueDate       time.Time
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string
	SentAt    time.Time
}

// NewService creates a new SES service. Notifications go to notifyTo.
func NewService(ctx context.Context, region, fromEmail, notifyTo string) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewServiceWithClient(ses.NewFromConfig(cfg), fromEmail, notifyTo), nil
}

// NewServiceWithClient wraps an existing client.
func NewServiceWithClient(client SendEmailAPI, fromEmail, notifyTo string) *Service {
	return &Service{client: client, fromEmail: fromEmail, notifyTo: notifyTo}
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.GetLogger().Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	utils.GetLogger().Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("subject", params.Subject),
		zap.String("messageId", messageID),
	)

	return &SendEmailResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}

// NotifyDisbursement emails the operations inbox about a new plan.
func (s *Service) NotifyDisbursement(ctx context.Context, n DisbursementNotification) error {
	if s.notifyTo == "" {
		return nil
	}

	htmlBody, err := renderDisbursementHTML(n)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	_, err = s.SendEmail(ctx, EmailParams{
		To:       s.notifyTo,
		Subject:  fmt.Sprintf("Installment plan %s disbursed: %s", n.LoanID, n.LoanAmount.StringFixed(2)),
		HTMLBody: htmlBody,
		TextBody: renderDisbursementText(n),
	})
	return err
}

var disbursementTemplate = template.Must(template.New("disbursement").Parse(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; color: #333;">
    <h2>Installment plan disbursed</h2>
    <table>
        <tr><td>Plan</td><td>{{.LoanID}}</td></tr>
        <tr><td>Customer</td><td>{{.BorrowerID}}</td></tr>
        <tr><td>Product</td><td>{{.ProductName}}</td></tr>
        <tr><td>Amount</td><td>{{.LoanAmount.StringFixed 2}}</td></tr>
        <tr><td>Service fee</td><td>{{.ServiceFee.StringFixed 2}}</td></tr>
        <tr><td>Disbursed</td><td>{{.DisbursedDate.Format "2006-01-02"}}</td></tr>
        <tr><td>Due</td><td>{{.DueDate.Format "2006-01-02"}}</td></tr>
    </table>
</body>
</html>`))

func renderDisbursementHTML(n DisbursementNotification) (string, error) {
	var buf bytes.Buffer
	if err := disbursementTemplate.Execute(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderDisbursementText(n DisbursementNotification) string {
	var buf bytes.Buffer

	buf.WriteString("Installment plan disbursed\n\n")
	buf.WriteString(fmt.Sprintf("Plan: %s\n", n.LoanID))
	buf.WriteString(fmt.Sprintf("Customer: %s\n", n.BorrowerID))
	buf.WriteString(fmt.Sprintf("Product: %s\n", n.ProductName))
	buf.WriteString(fmt.Sprintf("Amount: %s\n", n.LoanAmount.StringFixed(2)))
	buf.WriteString(fmt.Sprintf("Service fee: %s\n", n.ServiceFee.StringFixed(2)))
	buf.WriteString(fmt.Sprintf("Disbursed: %s\n", n.DisbursedDate.Format("2006-01-02")))
	buf.WriteString(fmt.Sprintf("Due: %s\n", n.DueDate.Format("2006-01-02")))

	return buf.String()
}

package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const emailStyles = `
	body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
	.container { max-width: 600px; margin: 0 auto; padding: 20px; }
	.header { background-color: #4a90e2; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
	.header.urgent { background-color: #e24a4a; }
	.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
	.button { display: inline-block; padding: 12px 30px; background-color: #4a90e2; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
	.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
`

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs instead of sending.
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(cfg)
	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendPasswordResetEmail sends a password reset email with a reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): password reset to %s", toEmail)
		return nil
	}

	resetLink := fmt.Sprintf("%s/auth/reset-password?token=%s", s.appBaseURL, resetToken)

	subject := "Reset Your BrightQuest Password"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>%s</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Password Reset Request</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>We received a request to reset your password for your BrightQuest account.</p>
			<p>Click the button below to reset your password:</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Reset Password</a>
			</p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p><strong>This link will expire in 1 hour.</strong></p>
			<p>If you didn't request a password reset, you can safely ignore this email.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from BrightQuest. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, emailStyles, toName, resetLink, resetLink)

	textBody := fmt.Sprintf(`Hi %s,

We received a request to reset your password for your BrightQuest account.

Click the link below to reset your password:
%s

This link will expire in 1 hour.

If you didn't request a password reset, you can safely ignore this email.

---
This is an automated email from BrightQuest. Please do not reply.
`, toName, resetLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}

	subject := "Welcome to BrightQuest!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>%s</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Welcome to BrightQuest!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>Thank you for creating your BrightQuest account! We're excited to help your children learn through fun, personalized lessons.</p>
			<p>Here's what you can do next:</p>
			<ul>
				<li>Add children to your family account</li>
				<li>Let your children work through lessons at their grade level</li>
				<li>Track progress, streaks and learning insights on your dashboard</li>
				<li>Get alerts when a child needs encouragement or extra help</li>
			</ul>
			<p style="text-align: center;">
				<a href="%s/login" class="button">Get Started</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from BrightQuest. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, emailStyles, toName, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

Thank you for creating your BrightQuest account! We're excited to help your children learn through fun, personalized lessons.

Here's what you can do next:
- Add children to your family account
- Let your children work through lessons at their grade level
- Track progress, streaks and learning insights on your dashboard
- Get alerts when a child needs encouragement or extra help

Get started: %s/login

---
This is an automated email from BrightQuest. Please do not reply.
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendInvitationEmail invites someone to join an existing family
func (s *EmailService) SendInvitationEmail(ctx context.Context, toEmail, inviterName, familyName, code string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): invitation to %s", toEmail)
		return nil
	}

	inviteLink := fmt.Sprintf("%s/invite?code=%s", s.appBaseURL, code)

	subject := fmt.Sprintf("%s invited you to join %s on BrightQuest", inviterName, familyName)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>%s</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>You're Invited!</h1>
		</div>
		<div class="content">
			<p>Hi,</p>
			<p>%s has invited you to join the family <strong>%s</strong> on BrightQuest, where you can follow the children's learning progress together.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Accept Invitation</a>
			</p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p>This invitation expires in 7 days.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from BrightQuest. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, emailStyles, inviterName, familyName, inviteLink, inviteLink)

	textBody := fmt.Sprintf(`Hi,

%s has invited you to join the family %s on BrightQuest, where you can follow the children's learning progress together.

Accept the invitation:
%s

This invitation expires in 7 days.

---
This is an automated email from BrightQuest. Please do not reply.
`, inviterName, familyName, inviteLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendUrgentAlertEmail notifies a parent about an urgent monitoring alert
func (s *EmailService) SendUrgentAlertEmail(ctx context.Context, toEmail, toName, alertTitle, alertMessage string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): urgent alert to %s", toEmail)
		return nil
	}

	subject := fmt.Sprintf("BrightQuest alert: %s", alertTitle)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>%s</style>
</head>
<body>
	<div class="container">
		<div class="header urgent">
			<h1>%s</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>%s</p>
			<p style="text-align: center;">
				<a href="%s/dashboard" class="button">Open Dashboard</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from BrightQuest. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, emailStyles, alertTitle, toName, alertMessage, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

%s

%s

Open your dashboard: %s/dashboard

---
This is an automated email from BrightQuest. Please do not reply.
`, toName, alertTitle, alertMessage, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		log.Printf("[DEBUG] Sending email: from=%s, to=%s, subject=%s", fromAddress, toEmail, subject)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message id: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}

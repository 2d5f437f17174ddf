package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"quicklearner/logger"
	"quicklearner/models"

	"gorm.io/gorm"
)

var verifyEmailTemplate = template.Must(template.New("verify").Parse(`<html>
<body>
<p>Dear Quick Learner Customer,<br><br></p>
<p>We're happy you signed up for Quick Learner.
To start exploring the Quick Learner App, please confirm your email address.
<br><br>
Click below to confirm your email address:</p>
<a href="{{.Link}}">{{.Link}}</a>
<p>Your request will not be processed unless you confirm the address using this URL.
This link expires {{.Hours}} hours after your original verification request.</p>
<p>If you did NOT request to verify this email address, do not click on the link.</p>
<p>Sincerely,</p>
<p>The Quick Learner Team</p>
</body>
</html>`))

var resetPasswordTemplate = template.Must(template.New("reset").Parse(`<html>
<body>
<p>Dear Quick Learner Customer,<br><br></p>
<p>Forgot your password?<br>
We received a request to reset the password for your account.</p>
<p>To reset your password, open the link below:</p>
<a href="{{.Link}}">{{.Link}}</a>
<p>This link expires {{.Hours}} hours after your original request.</p>
<p>If you did NOT request to reset the password for this email address, do not click on the link.</p>
<p>Sincerely,</p>
<p>The Quick Learner Team</p>
</body>
</html>`))

type SendEmailRequest struct {
	RecipientEmail string `json:"recipientEmail" binding:"required,email"`
}

type EmailService struct {
	db          *gorm.DB
	tokens      *TokenService
	mailer      Mailer
	frontendURL string
	log         *logger.Logger
}

func NewEmailService(db *gorm.DB, tokens *TokenService, mailer Mailer, frontendURL string, log *logger.Logger) *EmailService {
	return &EmailService{
		db:          db,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: frontendURL,
		log:         log.With("service", "EmailService"),
	}
}

func (s *EmailService) SendSignupVerification(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.send(ctx, user, PurposeVerifyEmail, "/email-verified/",
		"Quick Learner - Email Address Verification Request", verifyEmailTemplate)
}

func (s *EmailService) SendPasswordReset(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.send(ctx, user, PurposeResetPassword, "/signin/reset-password/",
		"Quick Learner - Reset password", resetPasswordTemplate)
}

func (s *EmailService) userByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Can not find user with email %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

func (s *EmailService) send(ctx context.Context, user *models.User, purpose TokenPurpose, path, subject string, tmpl *template.Template) error {
	token, err := s.tokens.Issue(user.ID, purpose)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	data := struct {
		Link  string
		Hours int
	}{
		Link:  s.frontendURL + path + token,
		Hours: int(s.tokens.emailTTL.Hours()),
	}
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render %s email: %w", purpose, err)
	}

	if err := s.mailer.Send(ctx, Email{To: user.Email, Subject: subject, HTML: body.String()}); err != nil {
		return err
	}
	s.log.Info("Email dispatched", "user_id", user.ID, "purpose", purpose)
	return nil
}

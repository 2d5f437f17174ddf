package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quicklearner/logger"
	"quicklearner/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=16"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=16"`
}

type GoogleAuthRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

// IDTokenValidator checks a Google ID token for the given audience.
type IDTokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

type AuthService struct {
	db             *gorm.DB
	tokens         *TokenService
	validateGoogle IDTokenValidator
	googleClientID string
	log            *logger.Logger
}

func NewAuthService(db *gorm.DB, tokens *TokenService, googleClientID string, validate IDTokenValidator, log *logger.Logger) *AuthService {
	if validate == nil {
		validate = idtoken.Validate
	}
	return &AuthService{
		db:             db,
		tokens:         tokens,
		validateGoogle: validate,
		googleClientID: googleClientID,
		log:            log.With("service", "AuthService"),
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) SignUp(ctx context.Context, req *SignUpRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = models.DefaultUserName
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, conflict("Duplicate email")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{Name: name, Email: email, Password: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("Duplicate email")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("User signed up", "user_id", user.ID)
	return &user, nil
}

func (s *AuthService) SignIn(ctx context.Context, req *SignInRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Can not find user with email %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, forbidden("Authentication failed, please check your email and password")
	}
	if !user.Verified {
		return nil, forbidden("Authentication failed, please verify your email address")
	}
	return s.respond(&user)
}

// VerifyEmail redeems a verify-email token and marks its user verified. The
// token is only spent once the update has gone through.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token, PurposeVerifyEmail)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", claims.UserID()).Update("verified", true)
		if res.Error != nil {
			return fmt.Errorf("verify user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("Can not find user with id %s", claims.UserID())
		}
		_, err := s.tokens.Consume(ctx, token, PurposeVerifyEmail)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("Email verified", "user_id", claims.UserID())
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Can not find this user")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// GoogleSignIn accepts a Google ID token. Unknown emails get a new verified
// account with an unusable password.
func (s *AuthService) GoogleSignIn(ctx context.Context, rawToken string) (*AuthResponse, error) {
	payload, err := s.validateGoogle(ctx, rawToken, s.googleClientID)
	if err != nil {
		return nil, unauthorized("Invalid Google token")
	}
	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return nil, notFound("Incorrect email address")
	}
	email = strings.ToLower(email)

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		name, _ := payload.Claims["name"].(string)
		if name == "" {
			name = models.DefaultUserName
		}
		hash, err := hashPassword(uuid.NewString())
		if err != nil {
			return nil, err
		}
		user = models.User{Name: name, Email: email, Password: hash, Verified: true}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create google user: %w", err)
		}
		s.log.Info("User created from Google sign-in", "user_id", user.ID)
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.respond(&user)
}

func (s *AuthService) respond(user *models.User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, PurposeAccess)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Token:     token,
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt,
	}, nil
}

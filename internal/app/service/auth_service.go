package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/app/repository"
	"github.com/kikichoice/storefront-backend/pkg/line"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	redisclient "github.com/kikichoice/storefront-backend/pkg/redis"
	"github.com/kikichoice/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists     = errors.New("email already exists")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrUserNotFound           = errors.New("user not found")
	ErrMagicLinkInvalid       = errors.New("invalid or expired sign-in link")
	ErrSocialLoginFailed      = errors.New("social login failed")
	ErrSocialLoginUnavailable = errors.New("social login is not configured")
)

const (
	// MagicLinkExpiry is how long a passwordless sign-in link stays valid
	MagicLinkExpiry = 15 * time.Minute
	// MagicLinkTokenLength is the byte length of the link token
	MagicLinkTokenLength = 32
	// OAuthStateTTL bounds a social login round trip
	OAuthStateTTL = 10 * time.Minute
)

// AuthError carries a message that can be shown to the shopper as is.
type AuthError struct {
	Err     error
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// LineLoginClient is the part of the LINE client used for sign-in.
type LineLoginClient interface {
	Plan(state, userAgent string) line.RedirectPlan
	ExchangeCode(ctx context.Context, code string) (*line.Token, error)
	GetProfile(ctx context.Context, accessToken string) (*line.Profile, error)
}

type AuthConfig struct {
	JWTSecret     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	PublicBaseURL string
}

type AuthService interface {
	Register(email, password, name, phone string) (*model.User, *util.TokenPair, error)
	Login(email, password string) (*model.User, *util.TokenPair, error)
	GetUserByID(id uint) (*model.User, error)
	UpdateProfile(userID uint, name, phone string) (*model.User, error)
	RequestMagicLink(email string) error
	VerifyMagicLink(token string) (*model.User, *util.TokenPair, error)
	BeginSocialLogin(ctx context.Context, userAgent string) (*line.RedirectPlan, error)
	CompleteLineLogin(ctx context.Context, code, state, oauthErr string) (*model.User, *util.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type authService struct {
	userRepo      repository.UserRepository
	magicLinkRepo repository.MagicLinkRepository
	lineClient    LineLoginClient
	cfg           AuthConfig
	now           func() time.Time
}

// NewAuthService creates the auth service. lineClient may be nil when LINE
// login is not configured.
func NewAuthService(
	userRepo repository.UserRepository,
	magicLinkRepo repository.MagicLinkRepository,
	lineClient LineLoginClient,
	cfg AuthConfig,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		magicLinkRepo: magicLinkRepo,
		lineClient:    lineClient,
		cfg:           cfg,
		now:           time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(email, password, name, phone string) (*model.User, *util.TokenPair, error) {
	email = normalizeEmail(email)
	if err := util.ValidatePassword(password); err != nil {
		return nil, nil, &ValidationError{Fields: map[string]string{"password": err.Error()}}
	}
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
		"name":  name,
	})

	existingUser, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}
	if existingUser != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	user := &model.User{
		Email:        &email,
		PasswordHash: hashedPassword,
		Name:         name,
		Phone:        phone,
		Provider:     model.ProviderEmail,
		Role:         model.RoleUser,
	}

	if err := s.userRepo.Create(user); err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})

	return user, tokens, nil
}

func (s *authService) Login(email, password string) (*model.User, *util.TokenPair, error) {
	email = normalizeEmail(email)
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	// passwordless and LINE accounts have no hash
	if user.PasswordHash == "" || !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"email":   email,
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})

	return user, tokens, nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found", map[string]interface{}{
				"user_id": id,
			})
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}

func (s *authService) UpdateProfile(userID uint, name, phone string) (*model.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	updated := false
	if name != "" && name != user.Name {
		user.Name = name
		updated = true
	}
	if phone != "" && phone != user.Phone {
		user.Phone = phone
		updated = true
	}
	if !updated {
		return user, nil
	}

	if err := s.userRepo.Update(user); err != nil {
		logger.Error("Failed to update user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Info("User profile updated successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

// RequestMagicLink stores a single-use sign-in token for email. Delivery is
// logged only. It succeeds for unknown addresses too; the account is created
// on first verification.
func (s *authService) RequestMagicLink(email string) error {
	email = normalizeEmail(email)
	logger.Info("Processing magic link request", map[string]interface{}{
		"email": email,
	})

	token, err := util.GenerateSecureToken(MagicLinkTokenLength)
	if err != nil {
		logger.Error("Failed to generate magic link token", err, map[string]interface{}{
			"email": email,
		})
		return err
	}

	link := &model.MagicLink{
		Email:     email,
		Token:     token,
		ExpiresAt: s.now().Add(MagicLinkExpiry),
	}
	if err := s.magicLinkRepo.Create(link); err != nil {
		logger.Error("Failed to create magic link", err, map[string]interface{}{
			"email": email,
		})
		return err
	}

	// TODO: hand the link to a mailer once one is configured
	logger.Info("Magic link generated (EMAIL SENDING NOT IMPLEMENTED)", map[string]interface{}{
		"email":      email,
		"link":       s.magicLinkURL(token),
		"expires_at": link.ExpiresAt,
	})
	return nil
}

func (s *authService) magicLinkURL(token string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	return base + "/auth/magic-link?token=" + url.QueryEscape(token)
}

func (s *authService) VerifyMagicLink(token string) (*model.User, *util.TokenPair, error) {
	link, err := s.magicLinkRepo.FindByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Unknown magic link token")
			return nil, nil, ErrMagicLinkInvalid
		}
		logger.Error("Failed to find magic link", err)
		return nil, nil, err
	}

	if link.Used || s.now().After(link.ExpiresAt) {
		logger.Warn("Magic link used or expired", map[string]interface{}{
			"email":      link.Email,
			"expires_at": link.ExpiresAt,
			"used":       link.Used,
		})
		return nil, nil, ErrMagicLinkInvalid
	}

	claimed, err := s.magicLinkRepo.MarkAsUsed(link.ID)
	if err != nil {
		logger.Error("Failed to mark magic link as used", err, map[string]interface{}{
			"link_id": link.ID,
		})
		return nil, nil, err
	}
	if !claimed {
		return nil, nil, ErrMagicLinkInvalid
	}

	user, err := s.userRepo.FindByEmail(link.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		email := link.Email
		user = &model.User{
			Email:    &email,
			Name:     strings.SplitN(email, "@", 2)[0],
			Provider: model.ProviderEmail,
			Role:     model.RoleUser,
		}
		err = s.userRepo.Create(user)
	}
	if err != nil {
		logger.Error("Failed to resolve magic link user", err, map[string]interface{}{
			"email": link.Email,
		})
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Magic link sign-in successful", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

// BeginSocialLogin stores a fresh OAuth state and returns where the browser
// should go next.
func (s *authService) BeginSocialLogin(ctx context.Context, userAgent string) (*line.RedirectPlan, error) {
	if s.lineClient == nil {
		return nil, ErrSocialLoginUnavailable
	}

	state, err := util.GenerateSecureToken(16)
	if err != nil {
		return nil, err
	}
	if err := redisclient.SaveOAuthState(ctx, state, "line", OAuthStateTTL); err != nil {
		return nil, err
	}

	plan := s.lineClient.Plan(state, userAgent)
	logger.Debug("LINE login started", map[string]interface{}{
		"app_link": plan.AppURL != "",
	})
	return &plan, nil
}

func (s *authService) CompleteLineLogin(ctx context.Context, code, state, oauthErr string) (*model.User, *util.TokenPair, error) {
	if s.lineClient == nil {
		return nil, nil, ErrSocialLoginUnavailable
	}

	if oauthErr != "" {
		logger.Warn("LINE login returned an error", map[string]interface{}{
			"error": oauthErr,
		})
		return nil, nil, &AuthError{Err: ErrSocialLoginFailed, Message: line.ErrorMessage(oauthErr)}
	}

	if _, err := redisclient.ConsumeOAuthState(ctx, state); err != nil {
		if errors.Is(err, redisclient.ErrStateNotFound) {
			logger.Warn("LINE login state mismatch")
			return nil, nil, &AuthError{Err: ErrSocialLoginFailed, Message: "LINE login session expired, please try again"}
		}
		return nil, nil, err
	}

	if code == "" {
		return nil, nil, &AuthError{Err: ErrSocialLoginFailed, Message: line.ErrorMessage("")}
	}

	token, err := s.lineClient.ExchangeCode(ctx, code)
	if err != nil {
		logger.Error("LINE code exchange failed", err)
		return nil, nil, &AuthError{Err: ErrSocialLoginFailed, Message: line.ErrorMessage("")}
	}

	profile, err := s.lineClient.GetProfile(ctx, token.AccessToken)
	if err != nil {
		logger.Error("LINE profile fetch failed", err)
		return nil, nil, &AuthError{Err: ErrSocialLoginFailed, Message: line.ErrorMessage("")}
	}

	user, err := s.upsertLineUser(profile)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("LINE login successful", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

func (s *authService) upsertLineUser(profile *line.Profile) (*model.User, error) {
	externalID := profile.ExternalID()

	user, err := s.userRepo.FindByExternalID(externalID)
	if err == nil {
		if profile.DisplayName != "" && profile.DisplayName != user.Name {
			user.Name = profile.DisplayName
			if err := s.userRepo.Update(user); err != nil {
				logger.Error("Failed to update LINE user", err, map[string]interface{}{
					"user_id": user.ID,
				})
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to find LINE user", err)
		return nil, err
	}

	name := profile.DisplayName
	if name == "" {
		name = "LINE user"
	}
	user = &model.User{
		Name:       name,
		ExternalID: &externalID,
		Provider:   model.ProviderLine,
		Role:       model.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		logger.Error("Failed to create LINE user", err)
		return nil, err
	}
	return user, nil
}

// Logout revokes the access token until it would have expired anyway.
func (s *authService) Logout(ctx context.Context, accessToken string) error {
	claims, err := util.ValidateToken(accessToken, s.cfg.JWTSecret)
	if err != nil {
		// expired or foreign tokens need no revocation
		return nil
	}

	if err := redisclient.BlacklistToken(ctx, accessToken, claims.TokenTTL(s.now())); err != nil {
		return err
	}

	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.EmailAddress(),
		string(user.Role),
		s.cfg.JWTSecret,
		s.cfg.AccessExpiry,
		s.cfg.RefreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

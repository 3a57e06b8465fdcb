package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/app/service"
	apperrors "github.com/kikichoice/storefront-backend/internal/errors"
	"github.com/kikichoice/storefront-backend/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type MagicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyMagicLinkRequest struct {
	Token string `json:"token" binding:"required"`
}

func userResponse(user *model.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"email":    user.EmailAddress(),
		"name":     user.Name,
		"phone":    user.Phone,
		"provider": user.Provider,
		"role":     user.Role,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check your sign-up details")
		return
	}

	user, tokens, err := ctrl.authService.Register(req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			apperrors.RespondWithValidationError(c, verr.Fields)
			return
		}
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			log.Warn("Registration failed: email already exists", map[string]interface{}{
				"email": req.Email,
			})
			apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "This email is already registered")
			return
		}
		log.Error("Registration failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "register user")
		return
	}

	log.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    userResponse(user),
		"tokens":  tokens,
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please enter your email and password")
		return
	}

	user, tokens, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("Login failed: invalid credentials", map[string]interface{}{
				"email": req.Email,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Incorrect email or password")
			return
		}
		log.Error("Login failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "login")
		return
	}

	log.Info("Login successful", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    userResponse(user),
		"tokens":  tokens,
	})
}

// Logout revokes the current access token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	token, _ := middleware.GetAccessToken(c)
	if err := ctrl.authService.Logout(c.Request.Context(), token); err != nil {
		// 로그아웃은 사용자 입장에서 항상 성공
		log.Error("Failed to revoke token during logout", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// RequestMagicLink emails a single-use sign-in link
// POST /api/v1/auth/magic-link
func (ctrl *AuthController) RequestMagicLink(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid magic link request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please enter a valid email")
		return
	}

	if err := ctrl.authService.RequestMagicLink(req.Email); err != nil {
		log.Error("Failed to create magic link", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.InternalError(c, "Could not send the sign-in link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If the email is valid, a sign-in link has been sent",
	})
}

// VerifyMagicLink exchanges a sign-in link token for a session
// POST /api/v1/auth/magic-link/verify
func (ctrl *AuthController) VerifyMagicLink(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req VerifyMagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Sign-in token is required")
		return
	}

	user, tokens, err := ctrl.authService.VerifyMagicLink(req.Token)
	if err != nil {
		if errors.Is(err, service.ErrMagicLinkInvalid) {
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthMagicLinkInvalid, "This sign-in link is invalid or has expired")
			return
		}
		log.Error("Magic link sign-in failed", err)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "verify magic link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    userResponse(user),
		"tokens":  tokens,
	})
}

// BeginLineLogin returns the redirect plan for LINE sign-in
// GET /api/v1/auth/line/begin
func (ctrl *AuthController) BeginLineLogin(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	plan, err := ctrl.authService.BeginSocialLogin(c.Request.Context(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrSocialLoginUnavailable) {
			apperrors.ServiceUnavailable(c, apperrors.AuthSocialLoginDisabled, "LINE login is not available")
			return
		}
		log.Error("Failed to start LINE login", err)
		apperrors.InternalError(c, "Could not start LINE login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redirect": plan,
	})
}

// LineCallback finishes LINE sign-in
// GET /api/v1/auth/line/callback
func (ctrl *AuthController) LineCallback(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	user, tokens, err := ctrl.authService.CompleteLineLogin(
		c.Request.Context(),
		c.Query("code"),
		c.Query("state"),
		c.Query("error"),
	)
	if err != nil {
		var authErr *service.AuthError
		switch {
		case errors.As(err, &authErr):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthSocialLoginFailed, authErr.Message)
		case errors.Is(err, service.ErrSocialLoginUnavailable):
			apperrors.ServiceUnavailable(c, apperrors.AuthSocialLoginDisabled, "LINE login is not available")
		default:
			log.Error("LINE login failed", err)
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "line login")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "LINE login successful",
		"user":    userResponse(user),
		"tokens":  tokens,
	})
}

// GetMe returns current user information
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
			return
		}
		log.Error("Failed to get user information", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse(user),
	})
}

// UpdateMe updates current user's profile
// PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	user, err := ctrl.authService.UpdateProfile(userID, req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
			return
		}
		log.Error("Failed to update user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    userResponse(user),
	})
}

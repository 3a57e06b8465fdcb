package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/app/service"
	apperrors "github.com/kikichoice/storefront-backend/internal/errors"
	"github.com/kikichoice/storefront-backend/internal/middleware"
	"github.com/kikichoice/storefront-backend/pkg/logger"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
	}
}

type SelectShippingRequest struct {
	ShippingMethod model.ShippingMethod `json:"shipping_method"`
}

// checkoutErrorResponse carries the current view so the client can re-render.
type checkoutErrorResponse struct {
	apperrors.ErrorResponse
	Checkout *model.CheckoutView `json:"checkout,omitempty"`
}

// Begin creates a checkout session for the profile
// POST /api/v1/checkout
func (ctrl *CheckoutController) Begin(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	profileID := middleware.GetProfileID(c)

	view, err := ctrl.checkoutService.Begin(c.Request.Context(), profileID)
	if err != nil {
		respondCheckoutError(c, log, err, view)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"checkout": view,
	})
}

// GetSession returns the session view
// GET /api/v1/checkout/:id
func (ctrl *CheckoutController) GetSession(c *gin.Context) {
	ctrl.respond(c, func(profileID, sessionID string) (*model.CheckoutView, error) {
		return ctrl.checkoutService.Get(c.Request.Context(), profileID, sessionID)
	})
}

// StartCheckout leaves the cart step; signed-in shoppers skip identity
// POST /api/v1/checkout/:id/start
func (ctrl *CheckoutController) StartCheckout(c *gin.Context) {
	_, authenticated := middleware.GetUserID(c)
	ctrl.respond(c, func(profileID, sessionID string) (*model.CheckoutView, error) {
		return ctrl.checkoutService.StartCheckout(c.Request.Context(), profileID, sessionID, authenticated)
	})
}

// CompleteAuthentication is called after the shopper signs in on the identity step
// POST /api/v1/checkout/:id/authenticated
func (ctrl *CheckoutController) CompleteAuthentication(c *gin.Context) {
	ctrl.respond(c, func(profileID, sessionID string) (*model.CheckoutView, error) {
		return ctrl.checkoutService.CompleteAuthentication(c.Request.Context(), profileID, sessionID)
	})
}

// ContinueAsGuest
// POST /api/v1/checkout/:id/guest
func (ctrl *CheckoutController) ContinueAsGuest(c *gin.Context) {
	ctrl.respond(c, func(profileID, sessionID string) (*model.CheckoutView, error) {
		return ctrl.checkoutService.ContinueAsGuest(c.Request.Context(), profileID, sessionID)
	})
}

// SubmitContact
// POST /api/v1/checkout/:id/contact
func (ctrl *CheckoutController) SubmitContact(c *gin.Context) {
	var form model.ContactForm
	if !bindCheckoutJSON(c, &form) {
		return
	}
	ctrl.respond(c, func(profileID, sessionID string) (*model.CheckoutView, error) {
		return ctrl.checkoutService.SubmitContact(c.Request.Context(), profileID, sessionID, form)
	})
}

// SelectShipping
// POST /api/v1/checkout/:id/delivery
func (ctrl *CheckoutController) SelectShipping(c *gin.Context) {
	var req SelectShippingRequest
	if !bindCheckoutJSON(c, &req) {
		return
	}
	ctrl.respond(c, func(profileID, sessionID string) (*model.CheckoutView, error) {
		return ctrl.checkoutService.SelectShipping(c.Request.Context(), profileID, sessionID, req.ShippingMethod)
	})
}

// SubmitOrder places the order and empties the cart
// POST /api/v1/checkout/:id/submit
func (ctrl *CheckoutController) SubmitOrder(c *gin.Context) {
	var form model.PaymentForm
	if !bindCheckoutJSON(c, &form) {
		return
	}
	ctrl.respond(c, func(profileID, sessionID string) (*model.CheckoutView, error) {
		return ctrl.checkoutService.SubmitOrder(c.Request.Context(), profileID, sessionID, form)
	})
}

func (ctrl *CheckoutController) respond(c *gin.Context, op func(profileID, sessionID string) (*model.CheckoutView, error)) {
	log := middleware.GetLoggerFromContext(c)

	view, err := op(middleware.GetProfileID(c), c.Param("id"))
	if err != nil {
		respondCheckoutError(c, log, err, view)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkout": view,
	})
}

// bindCheckoutJSON accepts an empty body as the zero value.
func bindCheckoutJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid checkout request", map[string]interface{}{
			"session_id": c.Param("id"),
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return false
	}
	return true
}

func respondCheckoutError(c *gin.Context, log *logger.Logger, err error, view *model.CheckoutView) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		apperrors.RespondWithValidationError(c, verr.Fields)
	case errors.Is(err, service.ErrSessionNotFound):
		apperrors.NotFound(c, apperrors.CheckoutSessionNotFound, "Checkout session has expired. Please start again")
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusConflict, checkoutErrorResponse{
			ErrorResponse: apperrors.ErrorResponse{
				Error:   apperrors.CheckoutEmptyCart,
				Message: "Your cart is empty",
			},
			Checkout: view,
		})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, checkoutErrorResponse{
			ErrorResponse: apperrors.ErrorResponse{
				Error:   apperrors.CheckoutInvalidTransition,
				Message: "This step is not available right now",
			},
			Checkout: view,
		})
	default:
		respondCartError(c, log, err, "checkout")
	}
}

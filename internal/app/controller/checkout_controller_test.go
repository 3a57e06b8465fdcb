package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/app/service"
	"github.com/kikichoice/storefront-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCheckoutControllerTest(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cartService, _ := newTestCartService(t)
	checkoutService := service.NewCheckoutService(cartService, time.Hour)
	cartCtrl := NewCartController(cartService, nil, nil)
	ctrl := NewCheckoutController(checkoutService)

	router := gin.New()
	api := router.Group("", withProfile(testProfileID))
	api.POST("/cart/items", cartCtrl.AddItem)
	api.POST("/checkout", ctrl.Begin)
	api.GET("/checkout/:id", ctrl.GetSession)
	api.POST("/checkout/:id/start", ctrl.StartCheckout)
	api.POST("/checkout/:id/guest", ctrl.ContinueAsGuest)
	api.POST("/checkout/:id/contact", ctrl.SubmitContact)
	api.POST("/checkout/:id/delivery", ctrl.SelectShipping)
	api.POST("/checkout/:id/submit", ctrl.SubmitOrder)

	signedIn := api.Group("/signed-in", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, uint(42))
		c.Next()
	})
	signedIn.POST("/checkout/:id/start", ctrl.StartCheckout)
	signedIn.POST("/checkout/:id/authenticated", ctrl.CompleteAuthentication)

	return router
}

type checkoutResponse struct {
	Error    string              `json:"error"`
	Checkout *model.CheckoutView `json:"checkout"`
}

func decodeCheckout(t *testing.T, w *httptest.ResponseRecorder) checkoutResponse {
	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func beginCheckout(t *testing.T, router *gin.Engine) string {
	w := doJSON(router, http.MethodPost, "/checkout", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeCheckout(t, w)
	require.NotNil(t, resp.Checkout)
	return resp.Checkout.Session.ID
}

func testContactForm() gin.H {
	return gin.H{
		"first_name":  "Mei",
		"last_name":   "Lin",
		"email":       "mei@example.com",
		"phone":       "0912345678",
		"address":     "No. 1, Section 1, Zhongxiao E. Rd.",
		"city":        "Taipei",
		"postal_code": "100",
	}
}

func TestCheckoutController_GuestFlow(t *testing.T) {
	router := setupCheckoutControllerTest(t)
	doJSON(router, http.MethodPost, "/cart/items", gin.H{"product_id": "tea", "quantity": 2})

	id := beginCheckout(t, router)
	base := "/checkout/" + id

	steps := []struct {
		path      string
		body      interface{}
		wantStep  model.CheckoutStep
		wantIndex int
	}{
		{base + "/start", nil, model.StepIdentity, 1},
		{base + "/guest", nil, model.StepContact, 2},
		{base + "/contact", testContactForm(), model.StepDelivery, 3},
		{base + "/delivery", gin.H{"shipping_method": "seven-eleven"}, model.StepPayment, 4},
		{base + "/submit", gin.H{"payment_method": "line-pay", "notes": " leave at door "}, model.StepConfirmation, 5},
	}

	var last checkoutResponse
	for _, step := range steps {
		w := doJSON(router, http.MethodPost, step.path, step.body)
		require.Equal(t, http.StatusOK, w.Code, step.path)
		last = decodeCheckout(t, w)
		assert.Equal(t, step.wantStep, last.Checkout.Session.Step)
		assert.Equal(t, step.wantIndex, last.Checkout.StepIndex)
	}

	assert.Regexp(t, regexp.MustCompile(`^KC-\d{8}-[A-Z0-9]{8}$`), last.Checkout.Session.OrderReference)
	assert.Equal(t, model.PaymentLinePay, last.Checkout.Session.PaymentMethod)
	assert.Equal(t, "leave at door", last.Checkout.Session.Notes)
	assert.False(t, last.Checkout.EmptyCart)

	// the cart was emptied by the order
	w := doJSON(router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeCheckout(t, w).Checkout.Items)
}

func TestCheckoutController_StartWithEmptyCart(t *testing.T) {
	router := setupCheckoutControllerTest(t)
	id := beginCheckout(t, router)

	w := doJSON(router, http.MethodPost, "/checkout/"+id+"/start", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeCheckout(t, w)
	assert.Equal(t, "CHECKOUT_EMPTY_CART", resp.Error)
	require.NotNil(t, resp.Checkout)
	assert.True(t, resp.Checkout.EmptyCart)
	assert.Equal(t, model.StepCart, resp.Checkout.Session.Step)
}

func TestCheckoutController_SignedInSkipsIdentity(t *testing.T) {
	router := setupCheckoutControllerTest(t)
	doJSON(router, http.MethodPost, "/cart/items", gin.H{"product_id": "tea", "quantity": 1})
	id := beginCheckout(t, router)

	w := doJSON(router, http.MethodPost, "/signed-in/checkout/"+id+"/start", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeCheckout(t, w)
	assert.Equal(t, model.StepContact, resp.Checkout.Session.Step)
	assert.True(t, resp.Checkout.Session.Authenticated)
}

func TestCheckoutController_CompleteAuthentication(t *testing.T) {
	router := setupCheckoutControllerTest(t)
	doJSON(router, http.MethodPost, "/cart/items", gin.H{"product_id": "tea", "quantity": 1})
	id := beginCheckout(t, router)
	doJSON(router, http.MethodPost, "/checkout/"+id+"/start", nil)

	w := doJSON(router, http.MethodPost, "/signed-in/checkout/"+id+"/authenticated", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StepContact, decodeCheckout(t, w).Checkout.Session.Step)
}

func TestCheckoutController_ContactValidation(t *testing.T) {
	router := setupCheckoutControllerTest(t)
	doJSON(router, http.MethodPost, "/cart/items", gin.H{"product_id": "tea", "quantity": 1})
	id := beginCheckout(t, router)
	doJSON(router, http.MethodPost, "/checkout/"+id+"/start", nil)
	doJSON(router, http.MethodPost, "/checkout/"+id+"/guest", nil)

	form := testContactForm()
	form["phone"] = "   "
	w := doJSON(router, http.MethodPost, "/checkout/"+id+"/contact", form)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_INVALID_INPUT", resp.Error)
	assert.Contains(t, resp.Fields, "phone")

	// the step did not move and the submitted values were kept
	w = doJSON(router, http.MethodGet, "/checkout/"+id, nil)
	view := decodeCheckout(t, w).Checkout
	assert.Equal(t, model.StepContact, view.Session.Step)
	assert.Equal(t, "Mei", view.Session.Contact.FirstName)
}

func TestCheckoutController_WrongStep(t *testing.T) {
	router := setupCheckoutControllerTest(t)
	doJSON(router, http.MethodPost, "/cart/items", gin.H{"product_id": "tea", "quantity": 1})
	id := beginCheckout(t, router)

	w := doJSON(router, http.MethodPost, "/checkout/"+id+"/submit", gin.H{"payment_method": "credit-card"})

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeCheckout(t, w)
	assert.Equal(t, "CHECKOUT_INVALID_TRANSITION", resp.Error)
	assert.Equal(t, model.StepCart, resp.Checkout.Session.Step)
}

func TestCheckoutController_UnknownSession(t *testing.T) {
	router := setupCheckoutControllerTest(t)

	w := doJSON(router, http.MethodGet, "/checkout/does-not-exist", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CHECKOUT_SESSION_NOT_FOUND", decodeError(t, w)["error"])
}

func TestCheckoutController_InvalidShippingMethod(t *testing.T) {
	router := setupCheckoutControllerTest(t)
	doJSON(router, http.MethodPost, "/cart/items", gin.H{"product_id": "tea", "quantity": 1})
	id := beginCheckout(t, router)
	doJSON(router, http.MethodPost, "/checkout/"+id+"/start", nil)
	doJSON(router, http.MethodPost, "/checkout/"+id+"/guest", nil)
	doJSON(router, http.MethodPost, "/checkout/"+id+"/contact", testContactForm())

	w := doJSON(router, http.MethodPost, "/checkout/"+id+"/delivery", gin.H{"shipping_method": "drone"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_INVALID_INPUT", decodeError(t, w)["error"])
}

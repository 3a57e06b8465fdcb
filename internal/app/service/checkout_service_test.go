package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCheckoutTest(t *testing.T) (CheckoutService, CartService) {
	cartService, _, _ := setupCartServiceTest(t)
	return NewCheckoutService(cartService, 2*time.Hour), cartService
}

func validContact() model.ContactForm {
	return model.ContactForm{
		FirstName:  "Mei",
		LastName:   "Lin",
		Email:      "mei@example.com",
		Phone:      "0912345678",
		Address:    "No. 1, Section 1",
		City:       "Taipei",
		PostalCode: "100",
	}
}

func addTea(t *testing.T, cartService CartService, profileID string, qty int) {
	_, err := cartService.AddProduct(context.Background(), profileID, AddProductRequest{ProductID: "tea", Quantity: qty})
	require.NoError(t, err)
}

func TestCheckoutService_Begin(t *testing.T) {
	checkout, cartService := setupCheckoutTest(t)
	addTea(t, cartService, "p1", 2)

	view, err := checkout.Begin(context.Background(), "p1")
	require.NoError(t, err)

	assert.NotEmpty(t, view.Session.ID)
	assert.Equal(t, model.StepCart, view.Session.Step)
	assert.Equal(t, 0, view.StepIndex)
	assert.Equal(t, model.ShippingHomeDelivery, view.Session.ShippingMethod)
	assert.Equal(t, model.PaymentCreditCard, view.Session.PaymentMethod)
	assert.False(t, view.EmptyCart)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 640.0, view.Subtotal)
	assert.Equal(t, 60.0, view.ShippingCost)
	assert.Equal(t, 700.0, view.Total)
	assert.Len(t, view.ShippingOptions, 2)
	assert.Len(t, view.PaymentOptions, 2)
}

func TestCheckoutService_EmptyCartBlocksStart(t *testing.T) {
	checkout, _ := setupCheckoutTest(t)
	ctx := context.Background()

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, view.EmptyCart)

	for _, authenticated := range []bool{false, true} {
		view, err = checkout.StartCheckout(ctx, "p1", view.Session.ID, authenticated)
		assert.ErrorIs(t, err, ErrEmptyCart)
		require.NotNil(t, view)
		assert.True(t, view.EmptyCart)
		assert.Equal(t, model.StepCart, view.Session.Step)
	}
}

func TestCheckoutService_GuestFlow(t *testing.T) {
	checkout, cartService := setupCheckoutTest(t)
	ctx := context.Background()
	addTea(t, cartService, "p1", 1)

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)
	id := view.Session.ID
	steps := []int{view.StepIndex}

	view, err = checkout.StartCheckout(ctx, "p1", id, false)
	require.NoError(t, err)
	assert.Equal(t, model.StepIdentity, view.Session.Step)
	steps = append(steps, view.StepIndex)

	view, err = checkout.ContinueAsGuest(ctx, "p1", id)
	require.NoError(t, err)
	assert.Equal(t, model.StepContact, view.Session.Step)
	assert.True(t, view.Session.Guest)
	steps = append(steps, view.StepIndex)

	view, err = checkout.SubmitContact(ctx, "p1", id, validContact())
	require.NoError(t, err)
	assert.Equal(t, model.StepDelivery, view.Session.Step)
	steps = append(steps, view.StepIndex)

	view, err = checkout.SelectShipping(ctx, "p1", id, model.ShippingSevenEleven)
	require.NoError(t, err)
	assert.Equal(t, model.StepPayment, view.Session.Step)
	assert.Zero(t, view.ShippingCost)
	assert.Equal(t, 320.0, view.Total)
	steps = append(steps, view.StepIndex)

	view, err = checkout.SubmitOrder(ctx, "p1", id, model.PaymentForm{
		PaymentMethod: model.PaymentLinePay,
		Notes:         "  leave at door ",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StepConfirmation, view.Session.Step)
	assert.Equal(t, model.PaymentLinePay, view.Session.PaymentMethod)
	assert.Equal(t, "leave at door", view.Session.Notes)
	assert.Regexp(t, regexp.MustCompile(`^KC-\d{8}-[A-Z0-9]{8}$`), view.Session.OrderReference)
	assert.False(t, view.EmptyCart)
	steps = append(steps, view.StepIndex)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, steps)

	c, err := cartService.Container(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, c.Items())

	view, err = checkout.Get(ctx, "p1", id)
	require.NoError(t, err)
	assert.False(t, view.EmptyCart)
	assert.Equal(t, model.StepConfirmation, view.Session.Step)
}

func TestCheckoutService_AuthenticatedSkipsIdentity(t *testing.T) {
	checkout, cartService := setupCheckoutTest(t)
	ctx := context.Background()
	addTea(t, cartService, "p1", 1)

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)

	view, err = checkout.StartCheckout(ctx, "p1", view.Session.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.StepContact, view.Session.Step)
	assert.True(t, view.Session.Authenticated)
}

func TestCheckoutService_CompleteAuthentication(t *testing.T) {
	checkout, cartService := setupCheckoutTest(t)
	ctx := context.Background()
	addTea(t, cartService, "p1", 1)

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)
	id := view.Session.ID

	_, err = checkout.CompleteAuthentication(ctx, "p1", id)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = checkout.StartCheckout(ctx, "p1", id, false)
	require.NoError(t, err)

	view, err = checkout.CompleteAuthentication(ctx, "p1", id)
	require.NoError(t, err)
	assert.Equal(t, model.StepContact, view.Session.Step)
	assert.True(t, view.Session.Authenticated)
	assert.False(t, view.Session.Guest)
}

func TestCheckoutService_ContactValidation(t *testing.T) {
	checkout, cartService := setupCheckoutTest(t)
	ctx := context.Background()
	addTea(t, cartService, "p1", 1)

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)
	id := view.Session.ID
	_, err = checkout.StartCheckout(ctx, "p1", id, true)
	require.NoError(t, err)

	form := validContact()
	form.Phone = "   "
	form.City = ""

	view, err = checkout.SubmitContact(ctx, "p1", id, form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "phone")
	assert.Contains(t, verr.Fields, "city")
	assert.Len(t, verr.Fields, 2)
	assert.Equal(t, model.StepContact, view.Session.Step)
	assert.Equal(t, "Mei", view.Session.Contact.FirstName)

	view, err = checkout.Get(ctx, "p1", id)
	require.NoError(t, err)
	assert.Equal(t, "mei@example.com", view.Session.Contact.Email)

	view, err = checkout.SubmitContact(ctx, "p1", id, validContact())
	require.NoError(t, err)
	assert.Equal(t, model.StepDelivery, view.Session.Step)
}

func TestCheckoutService_ShippingDefaultsAndValidation(t *testing.T) {
	checkout, cartService := setupCheckoutTest(t)
	ctx := context.Background()
	addTea(t, cartService, "p1", 1)

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)
	id := view.Session.ID
	_, err = checkout.StartCheckout(ctx, "p1", id, true)
	require.NoError(t, err)
	_, err = checkout.SubmitContact(ctx, "p1", id, validContact())
	require.NoError(t, err)

	_, err = checkout.SelectShipping(ctx, "p1", id, model.ShippingMethod("drone"))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	view, err = checkout.SelectShipping(ctx, "p1", id, "")
	require.NoError(t, err)
	assert.Equal(t, model.ShippingHomeDelivery, view.Session.ShippingMethod)
	assert.Equal(t, model.StepPayment, view.Session.Step)
}

func TestCheckoutService_NoBackwardsTransitions(t *testing.T) {
	checkout, cartService := setupCheckoutTest(t)
	ctx := context.Background()
	addTea(t, cartService, "p1", 1)

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)
	id := view.Session.ID
	_, err = checkout.StartCheckout(ctx, "p1", id, true)
	require.NoError(t, err)
	_, err = checkout.SubmitContact(ctx, "p1", id, validContact())
	require.NoError(t, err)

	_, err = checkout.StartCheckout(ctx, "p1", id, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = checkout.ContinueAsGuest(ctx, "p1", id)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = checkout.SubmitContact(ctx, "p1", id, validContact())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = checkout.SubmitOrder(ctx, "p1", id, model.PaymentForm{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	view, err = checkout.Get(ctx, "p1", id)
	require.NoError(t, err)
	assert.Equal(t, model.StepDelivery, view.Session.Step)
}

func TestCheckoutService_EmptiedCartMidFlow(t *testing.T) {
	checkout, cartService := setupCheckoutTest(t)
	ctx := context.Background()
	addTea(t, cartService, "p1", 1)

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)
	id := view.Session.ID
	_, err = checkout.StartCheckout(ctx, "p1", id, true)
	require.NoError(t, err)

	c, err := cartService.Container(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, c.ClearCart(ctx))

	view, err = checkout.Get(ctx, "p1", id)
	require.NoError(t, err)
	assert.True(t, view.EmptyCart)
	assert.Equal(t, model.StepContact, view.Session.Step)

	_, err = checkout.SubmitContact(ctx, "p1", id, validContact())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutService_SubmitOrderRejectsUnknownPayment(t *testing.T) {
	checkout, cartService := setupCheckoutTest(t)
	ctx := context.Background()
	addTea(t, cartService, "p1", 1)

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)
	id := view.Session.ID
	_, err = checkout.StartCheckout(ctx, "p1", id, true)
	require.NoError(t, err)
	_, err = checkout.SubmitContact(ctx, "p1", id, validContact())
	require.NoError(t, err)
	_, err = checkout.SelectShipping(ctx, "p1", id, "")
	require.NoError(t, err)

	_, err = checkout.SubmitOrder(ctx, "p1", id, model.PaymentForm{PaymentMethod: "cash"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	c, err := cartService.Container(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, c.Items(), 1)
}

func TestCheckoutService_SessionOwnership(t *testing.T) {
	checkout, _ := setupCheckoutTest(t)
	ctx := context.Background()

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)

	_, err = checkout.Get(ctx, "p2", view.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = checkout.Get(ctx, "p1", "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCheckoutService_Sweep(t *testing.T) {
	checkout, _ := setupCheckoutTest(t)
	ctx := context.Background()

	view, err := checkout.Begin(ctx, "p1")
	require.NoError(t, err)

	assert.Zero(t, checkout.Sweep(time.Now()))
	assert.Equal(t, 1, checkout.Sweep(time.Now().Add(3*time.Hour)))

	_, err = checkout.Get(ctx, "p1", view.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCheckoutService_EveryAdvanceNeedsItems(t *testing.T) {
	ctx := context.Background()
	type transition func(c CheckoutService, id string) (*model.CheckoutView, error)

	reach := map[model.CheckoutStep][]transition{
		model.StepIdentity: {
			func(c CheckoutService, id string) (*model.CheckoutView, error) { return c.StartCheckout(ctx, "p1", id, false) },
		},
		model.StepContact: {
			func(c CheckoutService, id string) (*model.CheckoutView, error) { return c.StartCheckout(ctx, "p1", id, true) },
		},
		model.StepDelivery: {
			func(c CheckoutService, id string) (*model.CheckoutView, error) { return c.StartCheckout(ctx, "p1", id, true) },
			func(c CheckoutService, id string) (*model.CheckoutView, error) { return c.SubmitContact(ctx, "p1", id, validContact()) },
		},
		model.StepPayment: {
			func(c CheckoutService, id string) (*model.CheckoutView, error) { return c.StartCheckout(ctx, "p1", id, true) },
			func(c CheckoutService, id string) (*model.CheckoutView, error) { return c.SubmitContact(ctx, "p1", id, validContact()) },
			func(c CheckoutService, id string) (*model.CheckoutView, error) { return c.SelectShipping(ctx, "p1", id, "") },
		},
	}

	tests := []struct {
		name    string
		at      model.CheckoutStep
		advance transition
	}{
		{"complete authentication", model.StepIdentity, func(c CheckoutService, id string) (*model.CheckoutView, error) {
			return c.CompleteAuthentication(ctx, "p1", id)
		}},
		{"continue as guest", model.StepIdentity, func(c CheckoutService, id string) (*model.CheckoutView, error) {
			return c.ContinueAsGuest(ctx, "p1", id)
		}},
		{"submit contact", model.StepContact, func(c CheckoutService, id string) (*model.CheckoutView, error) {
			return c.SubmitContact(ctx, "p1", id, validContact())
		}},
		{"select shipping", model.StepDelivery, func(c CheckoutService, id string) (*model.CheckoutView, error) {
			return c.SelectShipping(ctx, "p1", id, model.ShippingSevenEleven)
		}},
		{"submit order", model.StepPayment, func(c CheckoutService, id string) (*model.CheckoutView, error) {
			return c.SubmitOrder(ctx, "p1", id, model.PaymentForm{})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkout, cartService := setupCheckoutTest(t)
			addTea(t, cartService, "p1", 1)

			view, err := checkout.Begin(ctx, "p1")
			require.NoError(t, err)
			id := view.Session.ID
			for _, step := range reach[tt.at] {
				_, err := step(checkout, id)
				require.NoError(t, err)
			}

			c, err := cartService.Container(ctx, "p1")
			require.NoError(t, err)
			require.NoError(t, c.ClearCart(ctx))

			view, err = tt.advance(checkout, id)
			assert.ErrorIs(t, err, ErrEmptyCart)
			require.NotNil(t, view)
			assert.True(t, view.EmptyCart)
			assert.Equal(t, tt.at, view.Session.Step)
		})
	}
}

func TestAdvanceFrom(t *testing.T) {
	items := model.Cart{"tea": {UUID: "tea", Quantity: 1}}

	assert.NoError(t, advanceFrom(&model.CheckoutSession{Step: model.StepContact}, model.StepContact, items))
	assert.ErrorIs(t, advanceFrom(&model.CheckoutSession{Step: model.StepDelivery}, model.StepContact, items), ErrInvalidTransition)
	assert.ErrorIs(t, advanceFrom(&model.CheckoutSession{Step: model.StepDelivery}, model.StepContact, model.Cart{}), ErrInvalidTransition)
	assert.ErrorIs(t, advanceFrom(&model.CheckoutSession{Step: model.StepContact}, model.StepContact, model.Cart{}), ErrEmptyCart)
}

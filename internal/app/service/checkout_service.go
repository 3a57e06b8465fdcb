package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	"github.com/kikichoice/storefront-backend/pkg/util"
)

var (
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid checkout step transition")
)

// ValidationError lists the form fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

var shippingOptions = []model.CheckoutOption{
	{Value: string(model.ShippingHomeDelivery), Label: "宅配到府 / Home Delivery", Cost: model.ShippingHomeDelivery.ShippingCost()},
	{Value: string(model.ShippingSevenEleven), Label: "7-11 取貨 / 7-11 Pickup", Cost: model.ShippingSevenEleven.ShippingCost()},
}

var paymentOptions = []model.CheckoutOption{
	{Value: string(model.PaymentCreditCard), Label: "信用卡 / Credit Card"},
	{Value: string(model.PaymentLinePay), Label: "LINE Pay"},
}

type CheckoutService interface {
	Begin(ctx context.Context, profileID string) (*model.CheckoutView, error)
	Get(ctx context.Context, profileID, sessionID string) (*model.CheckoutView, error)
	StartCheckout(ctx context.Context, profileID, sessionID string, authenticated bool) (*model.CheckoutView, error)
	CompleteAuthentication(ctx context.Context, profileID, sessionID string) (*model.CheckoutView, error)
	ContinueAsGuest(ctx context.Context, profileID, sessionID string) (*model.CheckoutView, error)
	SubmitContact(ctx context.Context, profileID, sessionID string, form model.ContactForm) (*model.CheckoutView, error)
	SelectShipping(ctx context.Context, profileID, sessionID string, method model.ShippingMethod) (*model.CheckoutView, error)
	SubmitOrder(ctx context.Context, profileID, sessionID string, form model.PaymentForm) (*model.CheckoutView, error)
	// Sweep drops sessions inactive for longer than the TTL and returns how many.
	Sweep(now time.Time) int
}

type checkoutEntry struct {
	mu      sync.Mutex
	session model.CheckoutSession
}

type checkoutService struct {
	carts CartService
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*checkoutEntry
}

func NewCheckoutService(carts CartService, ttl time.Duration) CheckoutService {
	return &checkoutService{
		carts:    carts,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*checkoutEntry),
	}
}

func (s *checkoutService) Begin(ctx context.Context, profileID string) (*model.CheckoutView, error) {
	now := s.now()
	entry := &checkoutEntry{
		session: model.CheckoutSession{
			ID:             uuid.New().String(),
			ProfileID:      profileID,
			Step:           model.StepCart,
			ShippingMethod: model.ShippingHomeDelivery,
			PaymentMethod:  model.PaymentCreditCard,
			CreatedAt:      now,
			LastActivityAt: now,
		},
	}

	s.mu.Lock()
	s.sessions[entry.session.ID] = entry
	s.mu.Unlock()

	logger.Info("Checkout session started", map[string]interface{}{
		"session_id": entry.session.ID,
		"profile_id": profileID,
	})

	entry.mu.Lock()
	defer entry.mu.Unlock()
	items, err := s.cartItems(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return buildCheckoutView(entry.session, items), nil
}

func (s *checkoutService) Get(ctx context.Context, profileID, sessionID string) (*model.CheckoutView, error) {
	return s.withSession(ctx, profileID, sessionID, nil)
}

func (s *checkoutService) StartCheckout(ctx context.Context, profileID, sessionID string, authenticated bool) (*model.CheckoutView, error) {
	return s.withSession(ctx, profileID, sessionID, func(sess *model.CheckoutSession, items model.Cart) error {
		if err := advanceFrom(sess, model.StepCart, items); err != nil {
			return err
		}
		sess.Authenticated = authenticated
		if authenticated {
			sess.Step = model.StepContact
		} else {
			sess.Step = model.StepIdentity
		}
		return nil
	})
}

func (s *checkoutService) CompleteAuthentication(ctx context.Context, profileID, sessionID string) (*model.CheckoutView, error) {
	return s.withSession(ctx, profileID, sessionID, func(sess *model.CheckoutSession, items model.Cart) error {
		if err := advanceFrom(sess, model.StepIdentity, items); err != nil {
			return err
		}
		sess.Authenticated = true
		sess.Step = model.StepContact
		return nil
	})
}

func (s *checkoutService) ContinueAsGuest(ctx context.Context, profileID, sessionID string) (*model.CheckoutView, error) {
	return s.withSession(ctx, profileID, sessionID, func(sess *model.CheckoutSession, items model.Cart) error {
		if err := advanceFrom(sess, model.StepIdentity, items); err != nil {
			return err
		}
		sess.Guest = true
		sess.Step = model.StepContact
		return nil
	})
}

// SubmitContact keeps the submitted values on the session even when they fail
// validation so the form can be shown again.
func (s *checkoutService) SubmitContact(ctx context.Context, profileID, sessionID string, form model.ContactForm) (*model.CheckoutView, error) {
	return s.withSession(ctx, profileID, sessionID, func(sess *model.CheckoutSession, items model.Cart) error {
		if err := advanceFrom(sess, model.StepContact, items); err != nil {
			return err
		}
		sess.Contact = form
		if verr := validateContact(form); verr != nil {
			return verr
		}
		sess.Step = model.StepDelivery
		return nil
	})
}

func (s *checkoutService) SelectShipping(ctx context.Context, profileID, sessionID string, method model.ShippingMethod) (*model.CheckoutView, error) {
	return s.withSession(ctx, profileID, sessionID, func(sess *model.CheckoutSession, items model.Cart) error {
		if err := advanceFrom(sess, model.StepDelivery, items); err != nil {
			return err
		}
		if method != "" {
			if !method.Valid() {
				return &ValidationError{Fields: map[string]string{"shipping_method": "unknown shipping method"}}
			}
			sess.ShippingMethod = method
		}
		sess.Step = model.StepPayment
		return nil
	})
}

// SubmitOrder records the order, empties the cart and moves to confirmation.
// The order itself is only logged.
func (s *checkoutService) SubmitOrder(ctx context.Context, profileID, sessionID string, form model.PaymentForm) (*model.CheckoutView, error) {
	return s.withSession(ctx, profileID, sessionID, func(sess *model.CheckoutSession, items model.Cart) error {
		if err := advanceFrom(sess, model.StepPayment, items); err != nil {
			return err
		}

		method := sess.PaymentMethod
		if form.PaymentMethod != "" {
			if !form.PaymentMethod.Valid() {
				return &ValidationError{Fields: map[string]string{"payment_method": "unknown payment method"}}
			}
			method = form.PaymentMethod
		}

		reference, err := util.GenerateOrderReference(s.now())
		if err != nil {
			return fmt.Errorf("failed to generate order reference: %w", err)
		}

		subtotal := items.TotalPrice()
		logger.Info("Order submitted", map[string]interface{}{
			"session_id":      sess.ID,
			"profile_id":      sess.ProfileID,
			"order_reference": reference,
			"items":           len(items),
			"subtotal":        subtotal,
			"shipping_method": sess.ShippingMethod,
			"payment_method":  method,
			"total":           subtotal + sess.ShippingMethod.ShippingCost(),
		})

		container, err := s.carts.Container(ctx, sess.ProfileID)
		if err != nil {
			return err
		}
		if err := container.ClearCart(ctx); err != nil {
			return err
		}

		sess.PaymentMethod = method
		sess.Notes = strings.TrimSpace(form.Notes)
		sess.DiscountCode = strings.TrimSpace(form.DiscountCode)
		sess.OrderReference = reference
		sess.Step = model.StepConfirmation
		return nil
	})
}

func (s *checkoutService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		entry.mu.Lock()
		stale := now.Sub(entry.session.LastActivityAt) > s.ttl
		entry.mu.Unlock()
		if stale {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// withSession runs step against a copy of the session and commits the copy
// only when step succeeds. A nil step just renders the view.
func (s *checkoutService) withSession(ctx context.Context, profileID, sessionID string, step func(*model.CheckoutSession, model.Cart) error) (*model.CheckoutView, error) {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.session.ProfileID != profileID {
		return nil, ErrSessionNotFound
	}

	items, err := s.cartItems(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if step == nil {
		return buildCheckoutView(entry.session, items), nil
	}

	next := entry.session
	from := next.Step
	if err := step(&next, items); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			// form values stay for re-display, the step does not move
			entry.session.Contact = next.Contact
			entry.session.LastActivityAt = s.now()
		}
		logger.Warn("Checkout transition rejected", map[string]interface{}{
			"session_id": sessionID,
			"step":       from,
			"reason":     err.Error(),
		})
		view := buildCheckoutView(entry.session, items)
		return view, err
	}

	if next.Step.Index() < from.Index() {
		return nil, ErrInvalidTransition
	}
	next.LastActivityAt = s.now()
	entry.session = next

	if next.Step != from {
		logger.Info("Checkout step advanced", map[string]interface{}{
			"session_id": sessionID,
			"from":       from,
			"to":         next.Step,
		})
	}

	if next.Step == model.StepConfirmation {
		items = model.Cart{}
	}
	return buildCheckoutView(entry.session, items), nil
}

// advanceFrom guards every forward move: the session must sit at from and the
// cart must still hold something to buy.
func advanceFrom(sess *model.CheckoutSession, from model.CheckoutStep, items model.Cart) error {
	if sess.Step != from {
		return ErrInvalidTransition
	}
	if len(items) == 0 {
		return ErrEmptyCart
	}
	return nil
}

func (s *checkoutService) cartItems(ctx context.Context, profileID string) (model.Cart, error) {
	container, err := s.carts.Container(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := container.Load(ctx); err != nil {
		return nil, err
	}
	return container.Items(), nil
}

func validateContact(form model.ContactForm) *ValidationError {
	required := []struct {
		field string
		value string
	}{
		{"first_name", form.FirstName},
		{"last_name", form.LastName},
		{"email", form.Email},
		{"phone", form.Phone},
		{"address", form.Address},
		{"city", form.City},
		{"postal_code", form.PostalCode},
	}

	fields := make(map[string]string)
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields[r.field] = "required"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func buildCheckoutView(sess model.CheckoutSession, items model.Cart) *model.CheckoutView {
	lines := make([]model.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, item)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].DateAdded.Equal(lines[j].DateAdded) {
			return lines[i].UUID < lines[j].UUID
		}
		return lines[i].DateAdded.Before(lines[j].DateAdded)
	})

	subtotal := items.TotalPrice()
	shipping := sess.ShippingMethod.ShippingCost()

	return &model.CheckoutView{
		Session:         sess,
		StepIndex:       sess.Step.Index(),
		EmptyCart:       len(items) == 0 && sess.Step != model.StepConfirmation,
		Items:           lines,
		Subtotal:        subtotal,
		ShippingCost:    shipping,
		Total:           subtotal + shipping,
		ShippingOptions: shippingOptions,
		PaymentOptions:  paymentOptions,
	}
}

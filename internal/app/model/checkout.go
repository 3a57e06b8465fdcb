package model

import (
	"time"
)

type CheckoutStep string // 결제 단계

const (
	StepCart         CheckoutStep = "cart"         // 장바구니 확인
	StepIdentity     CheckoutStep = "identity"     // 로그인 또는 비회원 선택
	StepContact      CheckoutStep = "contact"      // 연락처/주소 입력
	StepDelivery     CheckoutStep = "delivery"     // 배송 방법 선택
	StepPayment      CheckoutStep = "payment"      // 결제 수단 선택
	StepConfirmation CheckoutStep = "confirmation" // 주문 완료
)

var checkoutStepOrder = []CheckoutStep{
	StepCart,
	StepIdentity,
	StepContact,
	StepDelivery,
	StepPayment,
	StepConfirmation,
}

// Index returns the position of the step in the fixed order, or -1.
func (s CheckoutStep) Index() int {
	for i, step := range checkoutStepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

type ShippingMethod string // 배송 방법

const (
	ShippingHomeDelivery ShippingMethod = "home-delivery"
	ShippingSevenEleven  ShippingMethod = "seven-eleven"
)

// ShippingCost returns the flat fee for the method.
func (m ShippingMethod) ShippingCost() float64 {
	switch m {
	case ShippingHomeDelivery:
		return 60
	default:
		return 0
	}
}

func (m ShippingMethod) Valid() bool {
	return m == ShippingHomeDelivery || m == ShippingSevenEleven
}

type PaymentMethod string // 결제 수단

const (
	PaymentCreditCard PaymentMethod = "credit-card"
	PaymentLinePay    PaymentMethod = "line-pay"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCreditCard || m == PaymentLinePay
}

// ContactForm holds buyer contact and shipping address fields.
type ContactForm struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// PaymentForm holds the last step's inputs.
type PaymentForm struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
	Notes         string        `json:"notes"`
	DiscountCode  string        `json:"discount_code"`
}

// CheckoutSession is ephemeral and lives only in memory.
type CheckoutSession struct {
	ID             string         `json:"id"`
	ProfileID      string         `json:"-"`
	Step           CheckoutStep   `json:"step"`
	Authenticated  bool           `json:"authenticated"`
	Guest          bool           `json:"guest"`
	Contact        ContactForm    `json:"contact"`
	ShippingMethod ShippingMethod `json:"shipping_method"`
	PaymentMethod  PaymentMethod  `json:"payment_method"`
	Notes          string         `json:"notes,omitempty"`
	DiscountCode   string         `json:"discount_code,omitempty"`
	OrderReference string         `json:"order_reference,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
}

// CheckoutOption is a selectable shipping or payment choice.
type CheckoutOption struct {
	Value string  `json:"value"`
	Label string  `json:"label"`
	Cost  float64 `json:"cost,omitempty"`
}

// CheckoutView is what clients render for the current step.
type CheckoutView struct {
	Session         CheckoutSession  `json:"session"`
	StepIndex       int              `json:"step_index"`
	EmptyCart       bool             `json:"empty_cart"`
	Items           []LineItem       `json:"items"`
	Subtotal        float64          `json:"subtotal"`
	ShippingCost    float64          `json:"shipping_cost"`
	Total           float64          `json:"total"`
	ShippingOptions []CheckoutOption `json:"shipping_options"`
	PaymentOptions  []CheckoutOption `json:"payment_options"`
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/app/repository"
	"github.com/kikichoice/storefront-backend/pkg/logger"
)

var (
	ErrVariantRequired = errors.New("a variant must be selected for this product")
	ErrVariantNotFound = errors.New("variant not found")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and available stock")
)

// Messages exposed on the cart state after a failed operation.
const (
	MsgLoadCartFailed       = "Failed to load cart"
	MsgAddItemFailed        = "Failed to add item to cart"
	MsgRemoveItemFailed     = "Failed to remove item from cart"
	MsgUpdateQuantityFailed = "Failed to update item quantity"
	MsgClearCartFailed      = "Failed to clear cart"
	MsgExceedsStock         = "Quantity exceeds available stock"
)

// CartNotifier is told about every committed cart change of a profile.
type CartNotifier interface {
	NotifyCart(profileID string, state model.CartState)
}

// CartContainer holds the in-memory view of one profile's cart. Operations run
// one at a time; the snapshot only ever holds data read back from the store.
type CartContainer struct {
	profileID string
	store     repository.CartRepository
	notifier  CartNotifier

	opMu sync.Mutex

	mu        sync.RWMutex
	items     model.Cart
	isLoading bool
	errMsg    string
	loaded    bool
	lastUsed  time.Time
}

func newCartContainer(profileID string, store repository.CartRepository, notifier CartNotifier) *CartContainer {
	return &CartContainer{
		profileID: profileID,
		store:     store,
		notifier:  notifier,
		items:     model.Cart{},
		lastUsed:  time.Now(),
	}
}

// ProfileID returns the owner of the container.
func (c *CartContainer) ProfileID() string {
	return c.profileID
}

// Load replaces the snapshot with the stored cart. On failure the previous
// snapshot is kept and the error message is set.
func (c *CartContainer) Load(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.load(ctx)
}

func (c *CartContainer) AddItem(ctx context.Context, productID string, fields model.LineItemInput) error {
	return c.mutate(ctx, MsgAddItemFailed, func() error {
		return c.store.Upsert(ctx, c.profileID, productID, model.LineItem{
			Name:     fields.Name,
			SKU:      fields.SKU,
			Quantity: fields.Quantity,
			Price:    fields.Price,
			Image:    fields.Image,
			Stock:    fields.Stock,
		})
	})
}

func (c *CartContainer) RemoveItem(ctx context.Context, productID string) error {
	return c.mutate(ctx, MsgRemoveItemFailed, func() error {
		return c.store.Remove(ctx, c.profileID, productID)
	})
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (c *CartContainer) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	return c.mutate(ctx, MsgUpdateQuantityFailed, func() error {
		return c.store.SetQuantity(ctx, c.profileID, productID, quantity)
	})
}

func (c *CartContainer) ClearCart(ctx context.Context) error {
	return c.mutate(ctx, MsgClearCartFailed, func() error {
		return c.store.Clear(ctx, c.profileID)
	})
}

// TotalPrice is derived from the snapshot and never persisted.
func (c *CartContainer) TotalPrice() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items.TotalPrice()
}

// TotalItems counts distinct lines, not units.
func (c *CartContainer) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items.TotalItems()
}

// Items returns a copy of the snapshot.
func (c *CartContainer) Items() model.Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items.Clone()
}

// State returns a copy of the exposed state.
func (c *CartContainer) State() model.CartState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

func (c *CartContainer) stateLocked() model.CartState {
	return model.CartState{
		Items:      c.items.Clone(),
		IsLoading:  c.isLoading,
		Error:      c.errMsg,
		TotalPrice: c.items.TotalPrice(),
		TotalItems: c.items.TotalItems(),
	}
}

func (c *CartContainer) load(ctx context.Context) error {
	c.mu.Lock()
	c.isLoading = true
	c.lastUsed = time.Now()
	c.mu.Unlock()

	items, err := c.store.GetAll(ctx, c.profileID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isLoading = false
	if err != nil {
		c.errMsg = MsgLoadCartFailed
		logger.Error("Failed to load cart", err, map[string]interface{}{
			"profile_id": c.profileID,
		})
		return err
	}
	c.items = items
	c.errMsg = ""
	c.loaded = true
	return nil
}

func (c *CartContainer) ensureLoaded(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.load(ctx)
}

// mutate runs op against the store and then re-reads the whole cart.
func (c *CartContainer) mutate(ctx context.Context, failMsg string, op func() error) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := op(); err != nil {
		msg := failMsg
		if errors.Is(err, repository.ErrExceedsStock) {
			msg = MsgExceedsStock
		}

		c.mu.Lock()
		c.errMsg = msg
		c.lastUsed = time.Now()
		c.mu.Unlock()

		if repository.IsStorageError(err) {
			logger.Error(failMsg, err, map[string]interface{}{
				"profile_id": c.profileID,
			})
		} else {
			logger.Warn(failMsg, map[string]interface{}{
				"profile_id": c.profileID,
				"reason":     err.Error(),
			})
		}
		return err
	}

	if err := c.load(ctx); err != nil {
		return err
	}

	if c.notifier != nil {
		c.notifier.NotifyCart(c.profileID, c.State())
	}
	return nil
}

func (c *CartContainer) idleSince() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUsed
}

// AddProductRequest is a shopper's "add to cart" choice.
type AddProductRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type CartService interface {
	// Container returns the profile's container, loading it on first use.
	Container(ctx context.Context, profileID string) (*CartContainer, error)
	AddProduct(ctx context.Context, profileID string, req AddProductRequest) (model.CartState, error)
	// EvictIdle drops containers unused since before cutoff and returns how many.
	EvictIdle(cutoff time.Time) int
}

type cartService struct {
	store    repository.CartRepository
	products ProductService
	notifier CartNotifier

	mu         sync.Mutex
	containers map[string]*CartContainer
}

func NewCartService(store repository.CartRepository, products ProductService, notifier CartNotifier) CartService {
	return &cartService{
		store:      store,
		products:   products,
		notifier:   notifier,
		containers: make(map[string]*CartContainer),
	}
}

func (s *cartService) Container(ctx context.Context, profileID string) (*CartContainer, error) {
	s.mu.Lock()
	c, ok := s.containers[profileID]
	if !ok {
		c = newCartContainer(profileID, s.store, s.notifier)
		s.containers[profileID] = c
	}
	s.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return c, err
	}
	return c, nil
}

func (s *cartService) AddProduct(ctx context.Context, profileID string, req AddProductRequest) (model.CartState, error) {
	logger.Info("Adding product to cart", map[string]interface{}{
		"profile_id": profileID,
		"product_id": req.ProductID,
		"variant_id": req.VariantID,
		"quantity":   req.Quantity,
	})

	key, fields, err := s.resolveLine(ctx, req)
	if err != nil {
		logger.Warn("Cannot add product to cart", map[string]interface{}{
			"profile_id": profileID,
			"product_id": req.ProductID,
			"reason":     err.Error(),
		})
		return model.CartState{}, err
	}

	c, err := s.Container(ctx, profileID)
	if err != nil {
		return c.State(), err
	}
	if err := c.AddItem(ctx, key, fields); err != nil {
		return c.State(), err
	}
	return c.State(), nil
}

// resolveLine builds the line item for a product or one of its variants. The
// variant UUID is the cart key when a variant is chosen.
func (s *cartService) resolveLine(ctx context.Context, req AddProductRequest) (string, model.LineItemInput, error) {
	detail, err := s.products.GetProductDetail(ctx, req.ProductID)
	if err != nil {
		return "", model.LineItemInput{}, err
	}

	key := detail.UUID
	if key == "" {
		key = req.ProductID
	}
	fields := model.LineItemInput{
		Name:     detail.Name,
		SKU:      detail.SKU,
		Quantity: req.Quantity,
		Price:    detail.Price,
		Image:    detail.PrimaryImage,
		Stock:    detail.StockCount,
	}

	if len(detail.Variants) > 0 {
		if req.VariantID == "" {
			return "", model.LineItemInput{}, ErrVariantRequired
		}
		variants, err := s.products.ListVariants(ctx, req.ProductID)
		if err != nil {
			return "", model.LineItemInput{}, err
		}

		var chosen *model.ProductVariant
		for i := range variants {
			if variants[i].UUID == req.VariantID {
				chosen = &variants[i]
				break
			}
		}
		if chosen == nil {
			return "", model.LineItemInput{}, ErrVariantNotFound
		}

		key = chosen.UUID
		fields.Name = detail.Name + " - " + chosen.Name
		fields.Stock = chosen.StockCount
		if chosen.SKU != "" {
			fields.SKU = chosen.SKU
		}
		if chosen.Price > 0 {
			fields.Price = chosen.Price
		}
		if chosen.ImageURL != "" {
			fields.Image = chosen.ImageURL
		}
	}

	if fields.Stock <= 0 {
		return "", model.LineItemInput{}, ErrOutOfStock
	}
	if fields.Quantity < 1 || fields.Quantity > fields.Stock {
		return "", model.LineItemInput{}, ErrInvalidQuantity
	}
	return key, fields, nil
}

func (s *cartService) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, c := range s.containers {
		if c.idleSince().Before(cutoff) {
			delete(s.containers, id)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Debug("Evicted idle cart containers", map[string]interface{}{
			"count": evicted,
		})
	}
	return evicted
}

// CartSnapshot re-reads a profile's cart for clients that ask to resync.
func CartSnapshot(carts CartService) func(ctx context.Context, profileID string) (model.CartState, error) {
	return func(ctx context.Context, profileID string) (model.CartState, error) {
		container, err := carts.Container(ctx, profileID)
		if err != nil {
			return container.State(), err
		}
		if err := container.Load(ctx); err != nil {
			return container.State(), err
		}
		return container.State(), nil
	}
}

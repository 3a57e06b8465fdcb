package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kikichoice/storefront-backend/internal/app/repository"
	"github.com/kikichoice/storefront-backend/internal/app/service"
	apperrors "github.com/kikichoice/storefront-backend/internal/errors"
	"github.com/kikichoice/storefront-backend/internal/middleware"
	ws "github.com/kikichoice/storefront-backend/internal/websocket"
	"github.com/kikichoice/storefront-backend/pkg/logger"
)

type CartController struct {
	cartService service.CartService
	hub         *ws.Hub
	upgrader    websocket.Upgrader
}

func NewCartController(cartService service.CartService, hub *ws.Hub, allowedOrigins []string) *CartController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = true
	}

	return &CartController{
		cartService: cartService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Origin 없는 요청은 브라우저가 아님
				return origin == "" || origins[origin]
			},
		},
	}
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart returns the profile's cart state
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	profileID := middleware.GetProfileID(c)

	container, err := ctrl.cartService.Container(c.Request.Context(), profileID)
	if err != nil {
		respondCartError(c, log, err, "load cart")
		return
	}
	// 다른 탭에서 바뀌었을 수 있으므로 매번 다시 읽음
	if err := container.Load(c.Request.Context()); err != nil {
		respondCartError(c, log, err, "load cart")
		return
	}

	state := container.State()
	log.Debug("Cart fetched", map[string]interface{}{
		"profile_id":  profileID,
		"total_items": state.TotalItems,
	})

	c.JSON(http.StatusOK, gin.H{
		"cart": state,
	})
}

// AddItem adds a product (or one of its variants) to the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	profileID := middleware.GetProfileID(c)

	var req service.AddProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"profile_id": profileID,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	state, err := ctrl.cartService.AddProduct(c.Request.Context(), profileID, req)
	if err != nil {
		respondCartError(c, log, err, "add item")
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"profile_id": profileID,
		"product_id": req.ProductID,
		"variant_id": req.VariantID,
		"quantity":   req.Quantity,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added to cart",
		"cart":    state,
	})
}

// UpdateItem sets the quantity of a line; zero or less removes it
// PUT /api/v1/cart/items/:id
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	profileID := middleware.GetProfileID(c)
	itemID := c.Param("id")

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update cart request", map[string]interface{}{
			"profile_id": profileID,
			"item_id":    itemID,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	ctrl.withContainer(c, "update item", func(container *service.CartContainer) error {
		return container.UpdateQuantity(c.Request.Context(), itemID, *req.Quantity)
	})
}

// RemoveItem removes a line from the cart
// DELETE /api/v1/cart/items/:id
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	itemID := c.Param("id")
	ctrl.withContainer(c, "remove item", func(container *service.CartContainer) error {
		return container.RemoveItem(c.Request.Context(), itemID)
	})
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	ctrl.withContainer(c, "clear cart", func(container *service.CartContainer) error {
		return container.ClearCart(c.Request.Context())
	})
}

// WebSocketHandler streams cart changes made in other tabs of the same profile
// GET /api/v1/cart/ws
func (ctrl *CartController) WebSocketHandler(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	profileID := middleware.GetProfileID(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, profileID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Cart WebSocket connection established", map[string]interface{}{
		"profile_id": profileID,
	})
}

func (ctrl *CartController) withContainer(c *gin.Context, action string, op func(*service.CartContainer) error) {
	log := middleware.GetLoggerFromContext(c)
	profileID := middleware.GetProfileID(c)

	container, err := ctrl.cartService.Container(c.Request.Context(), profileID)
	if err != nil {
		respondCartError(c, log, err, action)
		return
	}

	if err := op(container); err != nil {
		respondCartError(c, log, err, action)
		return
	}

	log.Info("Cart updated", map[string]interface{}{
		"profile_id": profileID,
		"action":     action,
	})

	c.JSON(http.StatusOK, gin.H{
		"cart": container.State(),
	})
}

// respondCartError maps cart, catalog and storage failures to HTTP responses.
func respondCartError(c *gin.Context, log *logger.Logger, err error, action string) {
	switch {
	case errors.Is(err, repository.ErrExceedsStock):
		apperrors.Conflict(c, apperrors.CartExceedsStock, service.MsgExceedsStock)
	case errors.Is(err, repository.ErrInvalidLineItem):
		apperrors.BadRequest(c, apperrors.CartInvalidItem, "Invalid cart item")
	case errors.Is(err, service.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Quantity must be between 1 and available stock")
	case errors.Is(err, service.ErrOutOfStock):
		apperrors.Conflict(c, apperrors.CartOutOfStock, "This product is out of stock")
	case errors.Is(err, service.ErrVariantRequired):
		apperrors.BadRequest(c, apperrors.CartVariantRequired, "Please select an option")
	case errors.Is(err, service.ErrVariantNotFound):
		apperrors.NotFound(c, apperrors.CartVariantNotFound, "Selected option is no longer available")
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.CatalogProductNotFound, "Product not found")
	case errors.Is(err, service.ErrCatalogUnavailable):
		log.Error("Catalog unavailable during cart operation", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ServiceUnavailable(c, apperrors.CatalogUnavailable, "Products are temporarily unavailable")
	case repository.IsStorageError(err):
		log.Error("Cart storage failure", err, map[string]interface{}{
			"action": action,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.CartStorageFailed, cartFailureMessage(action))
	default:
		log.Error("Unexpected cart failure", err, map[string]interface{}{
			"action": action,
		})
		apperrors.InternalError(c, "")
	}
}

func cartFailureMessage(action string) string {
	switch action {
	case "load cart":
		return service.MsgLoadCartFailed
	case "add item":
		return service.MsgAddItemFailed
	case "update item":
		return service.MsgUpdateQuantityFailed
	case "remove item":
		return service.MsgRemoveItemFailed
	case "clear cart":
		return service.MsgClearCartFailed
	}
	return "Cart operation failed"
}

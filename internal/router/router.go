package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kikichoice/storefront-backend/config"
	"github.com/kikichoice/storefront-backend/internal/app/controller"
	"github.com/kikichoice/storefront-backend/internal/middleware"
)

type Router struct {
	authController     *controller.AuthController
	productController  *controller.ProductController
	cartController     *controller.CartController
	checkoutController *controller.CheckoutController
	wishlistController *controller.WishlistController
	uploadController   *controller.UploadController
	authMiddleware     *middleware.AuthMiddleware
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	checkoutController *controller.CheckoutController,
	wishlistController *controller.WishlistController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		productController:  productController,
		cartController:     cartController,
		checkoutController: checkoutController,
		wishlistController: wishlistController,
		uploadController:   uploadController,
		authMiddleware:     authMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "kikichoice API is running",
		})
	})

	v1 := router.Group("/api/v1")
	// 모든 쇼핑 상태는 프로필 쿠키 기준
	v1.Use(middleware.ProfileMiddleware(r.config.Environment() == "production"))
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.POST("/magic-link", r.authController.RequestMagicLink)
			auth.POST("/magic-link/verify", r.authController.VerifyMagicLink)
			auth.GET("/line/begin", r.authController.BeginLineLogin)
			auth.GET("/line/callback", r.authController.LineCallback)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.GetAllProducts)
			products.GET("/hot-selling", r.productController.GetHotSelling)
			products.GET("/:uuid", r.productController.GetProduct)
			products.GET("/:uuid/variants", r.productController.GetVariants)
		}

		cart := v1.Group("/cart")
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddItem)
			cart.PUT("/items/:id", r.cartController.UpdateItem)
			cart.DELETE("/items/:id", r.cartController.RemoveItem)
			cart.GET("/ws", r.cartController.WebSocketHandler)
		}

		checkout := v1.Group("/checkout")
		{
			checkout.POST("", r.checkoutController.Begin)
			checkout.GET("/:id", r.checkoutController.GetSession)
			checkout.POST("/:id/start", r.authMiddleware.OptionalAuthenticate(), r.checkoutController.StartCheckout)
			checkout.POST("/:id/authenticated", r.authMiddleware.Authenticate(), r.checkoutController.CompleteAuthentication)
			checkout.POST("/:id/guest", r.checkoutController.ContinueAsGuest)
			checkout.POST("/:id/contact", r.checkoutController.SubmitContact)
			checkout.POST("/:id/delivery", r.checkoutController.SelectShipping)
			checkout.POST("/:id/submit", r.checkoutController.SubmitOrder)
		}

		wishlist := v1.Group("/wishlist")
		{
			wishlist.GET("", r.wishlistController.GetWishlist)
			wishlist.POST("", r.wishlistController.AddToWishlist)
			wishlist.DELETE("/:id", r.wishlistController.RemoveFromWishlist)
		}

		upload := v1.Group("/upload")
		{
			upload.POST("/presigned-url", r.uploadController.GeneratePresignedURL)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

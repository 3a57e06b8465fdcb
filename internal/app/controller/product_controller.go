package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kikichoice/storefront-backend/internal/app/service"
	apperrors "github.com/kikichoice/storefront-backend/internal/errors"
	"github.com/kikichoice/storefront-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// GetAllProducts returns all products
// GET /api/v1/products
func (ctrl *ProductController) GetAllProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	products, err := ctrl.productService.ListProducts(c.Request.Context())
	if err != nil {
		log.Error("Failed to fetch products", err)
		apperrors.ServiceUnavailable(c, apperrors.CatalogUnavailable, "Products are temporarily unavailable")
		return
	}

	log.Info("Products fetched successfully", map[string]interface{}{
		"count": len(products),
	})

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetHotSelling returns the homepage products, falling back to the stored list
// GET /api/v1/products/hot-selling
func (ctrl *ProductController) GetHotSelling(c *gin.Context) {
	products := ctrl.productService.HotSelling(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProduct returns a product detail
// GET /api/v1/products/:uuid
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	productID := c.Param("uuid")

	product, err := ctrl.productService.GetProductDetail(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			log.Warn("Product not found", map[string]interface{}{
				"product_id": productID,
			})
			apperrors.NotFound(c, apperrors.CatalogProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		apperrors.ServiceUnavailable(c, apperrors.CatalogUnavailable, "Products are temporarily unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// GetVariants returns the purchasable variants of a product
// GET /api/v1/products/:uuid/variants
func (ctrl *ProductController) GetVariants(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	productID := c.Param("uuid")

	variants, err := ctrl.productService.ListVariants(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.CatalogProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to fetch product variants", err, map[string]interface{}{
			"product_id": productID,
		})
		apperrors.ServiceUnavailable(c, apperrors.CatalogUnavailable, "Products are temporarily unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"variants": variants,
		"count":    len(variants),
	})
}

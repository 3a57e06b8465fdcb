package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/app/repository"
	"github.com/kikichoice/storefront-backend/pkg/catalog"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	"golang.org/x/sync/singleflight"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCatalogUnavailable = errors.New("product catalog unavailable")
)

// sharedFetchTimeout bounds a collapsed catalog call once it no longer follows any caller.
const sharedFetchTimeout = 15 * time.Second

// fallbackProductLimit caps how many stored fallback products the homepage shows.
const fallbackProductLimit = 8

// builtinFallbackProducts is shown when neither the hot-selling endpoint nor the
// fallback table can serve the homepage.
var builtinFallbackProducts = []model.Product{
	{UUID: "builtin-1", Name: "高齡犬關節保健膠囊", Price: 980, OriginalPrice: floatPtr(1200), Category: "supplements", StockCount: 1, InStock: true},
	{UUID: "builtin-2", Name: "軟質寵物床墊", Price: 1680, Category: "bedding", StockCount: 1, InStock: true},
	{UUID: "builtin-3", Name: "易消化高齡貓糧", Price: 650, Category: "food", StockCount: 0, InStock: false},
	{UUID: "builtin-4", Name: "溫熱墊", Price: 890, Category: "comfort", StockCount: 1, InStock: true},
}

// CatalogClient is the read-only product API.
type CatalogClient interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	HotSelling(ctx context.Context) ([]catalog.Product, error)
	GetProduct(ctx context.Context, uuid string) (*catalog.ProductDetail, error)
	ListVariants(ctx context.Context, uuid string) ([]catalog.Variant, error)
}

type ProductService interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProductDetail(ctx context.Context, uuid string) (*model.ProductDetail, error)
	ListVariants(ctx context.Context, uuid string) ([]model.ProductVariant, error)
	// HotSelling never fails: it degrades to stored and then built-in products.
	HotSelling(ctx context.Context) []model.Product
}

type productService struct {
	client       CatalogClient
	fallbackRepo repository.FallbackProductRepository
	group        singleflight.Group
}

func NewProductService(client CatalogClient, fallbackRepo repository.FallbackProductRepository) ProductService {
	return &productService{
		client:       client,
		fallbackRepo: fallbackRepo,
	}
}

func (s *productService) ListProducts(ctx context.Context) ([]model.Product, error) {
	v, err, shared := s.shared(ctx, "products", func(ctx context.Context) (interface{}, error) {
		return s.client.ListProducts(ctx)
	})
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, mapCatalogError(err)
	}

	items := v.([]catalog.Product)
	products := make([]model.Product, 0, len(items))
	for _, p := range items {
		products = append(products, toModelProduct(p))
	}

	logger.Debug("Products fetched", map[string]interface{}{
		"count":  len(products),
		"shared": shared,
	})
	return products, nil
}

func (s *productService) GetProductDetail(ctx context.Context, uuid string) (*model.ProductDetail, error) {
	v, err, _ := s.shared(ctx, "product:"+uuid, func(ctx context.Context) (interface{}, error) {
		return s.client.GetProduct(ctx, uuid)
	})
	if err != nil {
		if !errors.Is(err, catalog.ErrProductNotFound) {
			logger.Error("Failed to get product detail", err, map[string]interface{}{
				"uuid": uuid,
			})
		}
		return nil, mapCatalogError(err)
	}

	return toModelProductDetail(v.(*catalog.ProductDetail)), nil
}

func (s *productService) ListVariants(ctx context.Context, uuid string) ([]model.ProductVariant, error) {
	v, err, _ := s.shared(ctx, "variants:"+uuid, func(ctx context.Context) (interface{}, error) {
		return s.client.ListVariants(ctx, uuid)
	})
	if err != nil {
		logger.Error("Failed to list product variants", err, map[string]interface{}{
			"uuid": uuid,
		})
		return nil, mapCatalogError(err)
	}

	items := v.([]catalog.Variant)
	variants := make([]model.ProductVariant, 0, len(items))
	for _, item := range items {
		variants = append(variants, toModelVariant(item))
	}
	return variants, nil
}

func (s *productService) HotSelling(ctx context.Context) []model.Product {
	v, err, _ := s.shared(ctx, "hot-selling", func(ctx context.Context) (interface{}, error) {
		return s.client.HotSelling(ctx)
	})
	if err == nil {
		items := v.([]catalog.Product)
		products := make([]model.Product, 0, len(items))
		for _, p := range items {
			products = append(products, toModelProduct(p))
		}
		return products
	}

	logger.Warn("Hot selling endpoint failed, using fallback products", map[string]interface{}{
		"error": err.Error(),
	})

	if s.fallbackRepo != nil {
		stored, ferr := s.fallbackRepo.FindAll(fallbackProductLimit)
		if ferr == nil && len(stored) > 0 {
			products := make([]model.Product, 0, len(stored))
			for _, p := range stored {
				products = append(products, p.ToProduct())
			}
			return products
		}
		if ferr != nil {
			logger.Error("Failed to load fallback products", ferr)
		}
	}

	out := make([]model.Product, len(builtinFallbackProducts))
	copy(out, builtinFallbackProducts)
	return out
}

// shared collapses concurrent calls for key into one catalog request.
// The request runs detached from any single caller; each caller only waits on its own ctx.
func (s *productService) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(detached, sharedFetchTimeout)
		defer cancel()
		return fn(fetchCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	case <-ctx.Done():
		return nil, ctx.Err(), false
	}
}

func mapCatalogError(err error) error {
	if errors.Is(err, catalog.ErrProductNotFound) {
		return ErrProductNotFound
	}
	return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
}

func toModelProduct(p catalog.Product) model.Product {
	product := model.Product{
		UUID:         p.UUID,
		SKU:          p.SKU,
		Name:         p.Name,
		Slug:         p.Slug,
		Price:        p.Price,
		Image:        p.PrimaryImageURL,
		StockCount:   p.StockCount,
		InStock:      p.StockCount > 0,
		Description:  p.ShortDesc,
		HasVariant:   p.HasVariant,
		VariantCount: p.VariantCount,
	}
	if p.OriginalPrice != nil && *p.OriginalPrice > 0 {
		product.OriginalPrice = floatPtr(*p.OriginalPrice)
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	return product
}

func toModelVariant(v catalog.Variant) model.ProductVariant {
	return model.ProductVariant{
		UUID:       v.UUID,
		Name:       v.Name,
		SKU:        v.SKU,
		StockCount: v.StockCount,
		ImageURL:   v.ImageURL,
		Price:      v.Price,
	}
}

// toModelProductDetail orders images primary-first and flattens specs into a map.
func toModelProductDetail(d *catalog.ProductDetail) *model.ProductDetail {
	images := make([]catalog.Image, len(d.Images))
	copy(images, d.Images)
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].IsPrimary && !images[j].IsPrimary
	})

	urls := make([]string, 0, len(images))
	primary := ""
	for _, img := range images {
		urls = append(urls, img.URL)
		if primary == "" && img.IsPrimary {
			primary = img.URL
		}
	}
	if primary == "" && len(urls) > 0 {
		primary = urls[0]
	}

	specs := make(map[string]string, len(d.Specs))
	for _, spec := range d.Specs {
		specs[spec.Name] = spec.Value
	}

	variants := make([]model.ProductVariant, 0, len(d.Variants))
	for _, v := range d.Variants {
		variants = append(variants, toModelVariant(v))
	}

	detail := &model.ProductDetail{
		UUID:             d.UUID,
		SKU:              d.SKU,
		Name:             d.Name,
		Slug:             d.Slug,
		Price:            d.Price,
		ShortDescription: d.ShortDesc,
		FullDescription:  d.FullDesc,
		StockCount:       d.StockCount,
		InStock:          d.StockCount > 0,
		Images:           urls,
		PrimaryImage:     primary,
		Specifications:   specs,
		Variants:         variants,
	}
	if d.OriginalPrice != nil && *d.OriginalPrice > 0 {
		detail.OriginalPrice = floatPtr(*d.OriginalPrice)
	}
	return detail
}

func floatPtr(f float64) *float64 {
	return &f
}

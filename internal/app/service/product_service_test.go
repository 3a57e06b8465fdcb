package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/app/repository"
	"github.com/kikichoice/storefront-backend/internal/db"
	"github.com/kikichoice/storefront-backend/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogClient struct {
	products   []catalog.Product
	hotSelling []catalog.Product
	details    map[string]*catalog.ProductDetail
	variants   map[string][]catalog.Variant
	err        error
	hotErr     error
	delay      time.Duration
	listCalls  int32
	getCalls   int32
	gate       chan struct{} // GetProduct가 닫힐 때까지 대기
}

func (f *fakeCatalogClient) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	atomic.AddInt32(&f.listCalls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.products, f.err
}

func (f *fakeCatalogClient) HotSelling(ctx context.Context) ([]catalog.Product, error) {
	if f.hotErr != nil {
		return nil, f.hotErr
	}
	return f.hotSelling, nil
}

func (f *fakeCatalogClient) GetProduct(ctx context.Context, uuid string) (*catalog.ProductDetail, error) {
	atomic.AddInt32(&f.getCalls, 1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.details[uuid]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return d, nil
}

func (f *fakeCatalogClient) ListVariants(ctx context.Context, uuid string) ([]catalog.Variant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.variants[uuid], nil
}

func setupProductServiceTest(t *testing.T, client *fakeCatalogClient) (ProductService, repository.FallbackProductRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	fallbackRepo := repository.NewFallbackProductRepository(testDB)
	return NewProductService(client, fallbackRepo), fallbackRepo
}

func TestProductService_ListProducts(t *testing.T) {
	category := "supplements"
	original := 1200.0
	productService, _ := setupProductServiceTest(t, &fakeCatalogClient{
		products: []catalog.Product{
			{UUID: "p1", Name: "Joint capsules", Price: 980, OriginalPrice: &original, Category: &category,
				StockCount: 3, PrimaryImageURL: "p1.jpg", HasVariant: true, VariantCount: 2},
			{UUID: "p2", Name: "Cat food", Price: 650, StockCount: 0},
		},
	})

	products, err := productService.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "p1.jpg", products[0].Image)
	require.NotNil(t, products[0].OriginalPrice)
	assert.Equal(t, 1200.0, *products[0].OriginalPrice)
	assert.Equal(t, "supplements", products[0].Category)
	assert.True(t, products[0].InStock)
	assert.True(t, products[0].HasVariant)

	assert.False(t, products[1].InStock)
	assert.Nil(t, products[1].OriginalPrice)
}

func TestProductService_ListProductsUnavailable(t *testing.T) {
	productService, _ := setupProductServiceTest(t, &fakeCatalogClient{err: catalog.ErrUnavailable})

	_, err := productService.ListProducts(context.Background())
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestProductService_ListProductsCollapsesConcurrentCalls(t *testing.T) {
	client := &fakeCatalogClient{
		products: []catalog.Product{{UUID: "p1", Name: "Tea", Price: 1}},
		delay:    50 * time.Millisecond,
	}
	productService, _ := setupProductServiceTest(t, client)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			products, err := productService.ListProducts(context.Background())
			assert.NoError(t, err)
			assert.Len(t, products, 1)
		}()
	}
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(&client.listCalls), int32(5))
}

func TestProductService_GetProductDetail(t *testing.T) {
	productService, _ := setupProductServiceTest(t, &fakeCatalogClient{
		details: map[string]*catalog.ProductDetail{
			"p1": {
				UUID: "p1", Name: "Pet bed", Price: 1680, StockCount: 2,
				Images: []catalog.Image{
					{URL: "side.jpg"},
					{URL: "front.jpg", IsPrimary: true},
					{URL: "back.jpg"},
				},
				Specs: []catalog.Spec{
					{Name: "Size", Value: "60x45cm"},
					{Name: "Material", Value: "Memory foam"},
				},
				Variants: []catalog.Variant{{UUID: "v1", Name: "Grey", StockCount: 1}},
			},
		},
	})

	detail, err := productService.GetProductDetail(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, []string{"front.jpg", "side.jpg", "back.jpg"}, detail.Images)
	assert.Equal(t, "front.jpg", detail.PrimaryImage)
	assert.Equal(t, "60x45cm", detail.Specifications["Size"])
	assert.Equal(t, "Memory foam", detail.Specifications["Material"])
	assert.True(t, detail.InStock)
	require.Len(t, detail.Variants, 1)
	assert.Equal(t, "Grey", detail.Variants[0].Name)
}

func TestProductService_GetProductDetailWithoutPrimaryImage(t *testing.T) {
	productService, _ := setupProductServiceTest(t, &fakeCatalogClient{
		details: map[string]*catalog.ProductDetail{
			"p1": {UUID: "p1", Name: "Heat pad", Images: []catalog.Image{{URL: "a.jpg"}, {URL: "b.jpg"}}},
		},
	})

	detail, err := productService.GetProductDetail(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", detail.PrimaryImage)
}

func TestProductService_GetProductDetailNotFound(t *testing.T) {
	productService, _ := setupProductServiceTest(t, &fakeCatalogClient{})

	_, err := productService.GetProductDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NotErrorIs(t, err, ErrCatalogUnavailable)
}

func TestProductService_ListVariants(t *testing.T) {
	productService, _ := setupProductServiceTest(t, &fakeCatalogClient{
		variants: map[string][]catalog.Variant{
			"p1": {
				{UUID: "v1", Name: "Small", SKU: "S", StockCount: 2, ImageURL: "s.jpg", Price: 300},
				{UUID: "v2", Name: "Large", SKU: "L", StockCount: 0, Price: 500},
			},
		},
	})

	variants, err := productService.ListVariants(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, "s.jpg", variants[0].ImageURL)
	assert.Equal(t, 500.0, variants[1].Price)
}

func TestProductService_HotSelling(t *testing.T) {
	t.Run("from catalog", func(t *testing.T) {
		productService, _ := setupProductServiceTest(t, &fakeCatalogClient{
			hotSelling: []catalog.Product{{UUID: "h1", Name: "Hot", Price: 10, StockCount: 1}},
		})

		products := productService.HotSelling(context.Background())
		require.Len(t, products, 1)
		assert.Equal(t, "h1", products[0].UUID)
	})

	t.Run("falls back to stored products", func(t *testing.T) {
		productService, fallbackRepo := setupProductServiceTest(t, &fakeCatalogClient{
			hotErr: errors.New("boom"),
		})
		require.NoError(t, fallbackRepo.UpsertMany([]model.FallbackProduct{
			{UUID: "f1", Name: "Stored", Price: 100, StockCount: 2, Images: []string{"f1.jpg"}},
		}))

		products := productService.HotSelling(context.Background())
		require.Len(t, products, 1)
		assert.Equal(t, "f1", products[0].UUID)
		assert.Equal(t, "f1.jpg", products[0].Image)
	})

	t.Run("falls back to built-in list", func(t *testing.T) {
		productService, _ := setupProductServiceTest(t, &fakeCatalogClient{
			hotErr: catalog.ErrUnavailable,
		})

		products := productService.HotSelling(context.Background())
		require.Len(t, products, 4)
		assert.Equal(t, "高齡犬關節保健膠囊", products[0].Name)
		assert.False(t, products[2].InStock)

		products[0].Name = "changed"
		assert.Equal(t, "高齡犬關節保健膠囊", productService.HotSelling(context.Background())[0].Name)
	})
}

func TestProductService_GetProductDetailIgnoresOtherCallersCancellation(t *testing.T) {
	client := &fakeCatalogClient{
		details: map[string]*catalog.ProductDetail{
			"p1": {UUID: "p1", Name: "Tea", Price: 320},
		},
		gate: make(chan struct{}),
	}
	productService, _ := setupProductServiceTest(t, client)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := productService.GetProductDetail(ctxA, "p1")
		errA <- err
	}()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&client.getCalls) == 1
	}, 2*time.Second, 5*time.Millisecond)

	type result struct {
		detail *model.ProductDetail
		err    error
	}
	resB := make(chan result, 1)
	go func() {
		detail, err := productService.GetProductDetail(context.Background(), "p1")
		resB <- result{detail, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("canceled caller did not return")
	}

	close(client.gate)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.Equal(t, "Tea", res.detail.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.getCalls))
}

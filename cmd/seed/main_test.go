package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newSheet(t *testing.T, rows [][]interface{}) *excelize.File {
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, axis, &row))
	}
	return f
}

func TestReadFallbackProducts(t *testing.T) {
	f := newSheet(t, [][]interface{}{
		{"uuid", "sku", "name", "slug", "price", "original_price", "stock", "short_desc", "images", "sort_order"},
		{"p-1", "TEA-1", "Oolong Tea", "", "320", "400", "5", "Roasted", "https://cdn/a.jpg|https://cdn/b.jpg", "2"},
		{"p-2", "", "Cat Bed", "cat-bed", "1500", "1200", "0", "", "", ""},
		{"", "X", "No UUID", "", "10"},
		{"p-3", "X", "Bad Price", "", "free"},
		{"p-4", "X"},
		{"p-1", "TEA-1", "Oolong Tea 2", "", "300", "", "7", "", "", "1"},
	})

	products, skipped, err := readFallbackProducts(f)
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, 4, skipped)

	tea := products[0]
	assert.Equal(t, "p-1", tea.UUID)
	assert.Equal(t, "Oolong Tea 2", tea.Name)
	assert.Equal(t, "oolong-tea-2", tea.Slug)
	assert.Equal(t, 300.0, tea.Price)
	assert.Nil(t, tea.OriginalPrice)
	assert.Equal(t, 7, tea.StockCount)
	assert.Equal(t, 1, tea.SortOrder)

	bed := products[1]
	assert.Equal(t, "cat-bed", bed.Slug)
	assert.Nil(t, bed.OriginalPrice, "original price below price is ignored")
	assert.Equal(t, 0, bed.StockCount)
	assert.Empty(t, bed.Images)
	assert.Equal(t, 2, bed.SortOrder, "row number is the default sort order")
}

func TestReadFallbackProducts_KeepsOriginalPriceAndImages(t *testing.T) {
	f := newSheet(t, [][]interface{}{
		{"uuid", "sku", "name", "slug", "price", "original_price", "stock", "short_desc", "images"},
		{"p-1", "TEA-1", "Oolong Tea", "", "320", "400", "5", "Roasted", "https://cdn/a.jpg, https://cdn/b.jpg"},
	})

	products, _, err := readFallbackProducts(f)
	require.NoError(t, err)
	require.Len(t, products, 1)

	require.NotNil(t, products[0].OriginalPrice)
	assert.Equal(t, 400.0, *products[0].OriginalPrice)
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, []string(products[0].Images))
}

func TestReadFallbackProducts_EmptySheet(t *testing.T) {
	f := newSheet(t, nil)

	_, _, err := readFallbackProducts(f)
	assert.Error(t, err)
}

func TestGenerateSlug(t *testing.T) {
	assert.Equal(t, "烏龍茶-oolong", generateSlug("  烏龍茶 / Oolong! "))
}

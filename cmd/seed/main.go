package main

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/kikichoice/storefront-backend/config"
	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/app/repository"
	"github.com/kikichoice/storefront-backend/internal/db"
	"github.com/lib/pq"
	"github.com/xuri/excelize/v2"
)

// 시트 컬럼 순서
const (
	colUUID = iota
	colSKU
	colName
	colSlug
	colPrice
	colOriginalPrice
	colStock
	colShortDesc
	colImages
	colSortOrder

	minColumns = colPrice + 1
)

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fallbackRepo := repository.NewFallbackProductRepository(db.GetDB())

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX file:", err)
	}
	defer f.Close()

	products, skipped, err := readFallbackProducts(f)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Products to import: %d (skipped rows: %d)\n", len(products), skipped)

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	if err := fallbackRepo.UpsertMany(products); err != nil {
		log.Fatal("Failed to upsert fallback products:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total products imported: %d\n", len(products))
}

// readFallbackProducts reads the first sheet. The first row is a header;
// rows without a UUID, name or valid price are skipped, and a repeated UUID
// keeps its last row.
func readFallbackProducts(f *excelize.File) ([]model.FallbackProduct, int, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	var products []model.FallbackProduct
	index := make(map[string]int) // uuid → products 인덱스
	skipped := 0

	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < minColumns {
			skipped++
			continue
		}

		uuid := cell(row, colUUID)
		name := cell(row, colName)
		price, err := strconv.ParseFloat(cell(row, colPrice), 64)
		if uuid == "" || name == "" || err != nil || price < 0 {
			skipped++
			continue
		}

		product := model.FallbackProduct{
			UUID:       uuid,
			SKU:        cell(row, colSKU),
			Name:       name,
			Slug:       cell(row, colSlug),
			Price:      price,
			StockCount: parseIntCell(cell(row, colStock)),
			ShortDesc:  cell(row, colShortDesc),
			Images:     pq.StringArray(splitImages(cell(row, colImages))),
			SortOrder:  parseIntCell(cell(row, colSortOrder)),
		}
		if product.Slug == "" {
			product.Slug = generateSlug(name)
		}
		if original, err := strconv.ParseFloat(cell(row, colOriginalPrice), 64); err == nil && original > price {
			product.OriginalPrice = &original
		}
		if product.SortOrder == 0 {
			product.SortOrder = i
		}

		if at, seen := index[uuid]; seen {
			products[at] = product
			skipped++
			continue
		}
		index[uuid] = len(products)
		products = append(products, product)
	}

	return products, skipped, nil
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func parseIntCell(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// splitImages accepts URLs separated by "|" or ",".
func splitImages(s string) []string {
	var images []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		if part = strings.TrimSpace(part); part != "" {
			images = append(images, part)
		}
	}
	return images
}

var (
	slugInvalid = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// generateSlug는 상품명으로 URL용 slug를 생성합니다
func generateSlug(name string) string {
	slug := slugInvalid.ReplaceAllString(name, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	return strings.ToLower(strings.Trim(slug, "-"))
}

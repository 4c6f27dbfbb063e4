package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

// ProductHeader is the column layout of products.csv
var ProductHeader = []string{"product_id", "category", "brand", "gender", "color", "size", "price_eur", "season"}

// StoreHeader is the column layout of stores.csv
var StoreHeader = []string{"store_id", "city", "region", "store_type"}

// LoadProducts loads and validates products from a CSV file
// CSVファイルから商品を読み込み
func LoadProducts(filename string) ([]simulation.Product, error) {
	records, err := readCSV(filename, ProductHeader)
	if err != nil {
		return nil, err
	}

	products := make([]simulation.Product, 0, len(records))
	for i, record := range records {
		price, err := decimal.NewFromString(strings.TrimSpace(record[6]))
		if err != nil {
			return nil, fmt.Errorf("商品CSV %d行目: 無効な価格 %q: %w", i+2, record[6], err)
		}
		p := simulation.Product{
			ID:       strings.TrimSpace(record[0]),
			Category: record[1],
			Brand:    record[2],
			Gender:   record[3],
			Color:    record[4],
			Size:     record[5],
			Price:    price,
			Season:   simulation.Season(strings.TrimSpace(record[7])),
		}
		if err := simulation.ValidateProduct(p); err != nil {
			return nil, fmt.Errorf("商品CSV %d行目: %w", i+2, err)
		}
		products = append(products, p)
	}

	return products, nil
}

// LoadStores loads and validates stores from a CSV file
// CSVファイルから店舗を読み込み
func LoadStores(filename string) ([]simulation.Store, error) {
	records, err := readCSV(filename, StoreHeader)
	if err != nil {
		return nil, err
	}

	stores := make([]simulation.Store, 0, len(records))
	for i, record := range records {
		s := simulation.Store{
			ID:        strings.TrimSpace(record[0]),
			City:      record[1],
			Region:    record[2],
			StoreType: record[3],
		}
		if err := simulation.ValidateStore(s); err != nil {
			return nil, fmt.Errorf("店舗CSV %d行目: %w", i+2, err)
		}
		stores = append(stores, s)
	}

	return stores, nil
}

// readCSV returns the data rows of a CSV file after checking its header
func readCSV(filename string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, simulation.NewStorageError("open_csv", fmt.Sprintf("ファイルを開けません: %s", filename), err)
	}
	defer file.Close()

	return parseCSV(file, expectedHeader)
}

func parseCSV(r io.Reader, expectedHeader []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // 列数は下で行番号付きで検証
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVの読み込みに失敗しました: %w", err)
	}

	if len(records) < 2 {
		return nil, errors.New("CSVにはヘッダーと1行以上のデータが必要です")
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("CSVヘッダーが一致しません（期待値: %v, 実際: %v）", expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("CSV %d行目: 列数は%dである必要があります（実際: %d）", i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

func validateHeader(header, expected []string) bool {
	if len(header) != len(expected) {
		return false
	}
	for i, col := range header {
		// BOM付きUTF-8で保存されたファイルにも対応
		if strings.TrimPrefix(strings.TrimSpace(col), "\ufeff") != expected[i] {
			return false
		}
	}
	return true
}

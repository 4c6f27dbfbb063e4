package simulation

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const maxIdentifierLength = 64

// ValidateProductID 商品IDの形式をバリデーション
func ValidateProductID(productID string) error {
	return validateIdentifier("product_id", "商品ID", productID)
}

// ValidateStoreID 店舗IDの形式をバリデーション
func ValidateStoreID(storeID string) error {
	return validateIdentifier("store_id", "店舗ID", storeID)
}

func validateIdentifier(field, label, value string) error {
	if value == "" {
		return NewValidationError(field, label+"が空です", value)
	}
	if len(value) > maxIdentifierLength {
		return NewValidationError(field, label+"が長すぎます", value)
	}
	// 英数字、ハイフン、アンダースコアのみ許可
	if !identifierPattern.MatchString(value) {
		return NewValidationError(field, label+"に無効な文字が含まれています", value)
	}
	return nil
}

// ValidateProduct 商品をバリデーション
func ValidateProduct(p Product) error {
	if err := ValidateProductID(p.ID); err != nil {
		return err
	}
	if !p.Season.Valid() {
		return NewValidationError("season", "未対応のシーズンです", string(p.Season))
	}
	if !p.Price.IsPositive() {
		return NewValidationError("price_eur", "価格は正の値である必要があります", p.Price.String())
	}
	if strings.TrimSpace(p.Category) == "" {
		return NewValidationError("category", "カテゴリが空です", p.Category)
	}
	return nil
}

// ValidateStore 店舗をバリデーション
func ValidateStore(s Store) error {
	return ValidateStoreID(s.ID)
}

// ValidateCatalog checks that the inputs of Simulate are well-formed:
// non-empty, valid rows and unique identifiers
// シミュレーション入力（商品・店舗）をバリデーション
func ValidateCatalog(products []Product, stores []Store) error {
	if len(products) == 0 {
		return ErrEmptyCatalog
	}
	if len(stores) == 0 {
		return ErrEmptyStoreList
	}

	seenProducts := make(map[string]struct{}, len(products))
	for i, p := range products {
		if err := ValidateProduct(p); err != nil {
			return fmt.Errorf("商品 %d: %w", i+1, err)
		}
		if _, dup := seenProducts[p.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, p.ID)
		}
		seenProducts[p.ID] = struct{}{}
	}

	seenStores := make(map[string]struct{}, len(stores))
	for i, s := range stores {
		if err := ValidateStore(s); err != nil {
			return fmt.Errorf("店舗 %d: %w", i+1, err)
		}
		if _, dup := seenStores[s.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateStore, s.ID)
		}
		seenStores[s.ID] = struct{}{}
	}

	return nil
}

package simulation

import (
	"errors"
	"fmt"
)

// Common simulation errors
// 共通のシミュレーションエラー定義

var (
	// ErrEmptyCatalog is returned when no product is supplied
	// 商品が1件も指定されていない場合のエラー
	ErrEmptyCatalog = errors.New("商品カタログが空です")

	// ErrEmptyStoreList is returned when no store is supplied
	// 店舗が1件も指定されていない場合のエラー
	ErrEmptyStoreList = errors.New("店舗リストが空です")

	// ErrDuplicateProduct is returned when two products share an identifier
	// 商品IDが重複している場合のエラー
	ErrDuplicateProduct = errors.New("商品IDが重複しています")

	// ErrDuplicateStore is returned when two stores share an identifier
	// 店舗IDが重複している場合のエラー
	ErrDuplicateStore = errors.New("店舗IDが重複しています")

	// ErrInvalidDateRange is returned when a date cannot be parsed
	// 日付が解釈できない場合のエラー
	ErrInvalidDateRange = errors.New("無効な日付範囲です")

	// ErrRunNotStarted is returned when a sink receives rows before the run header
	// 実行情報より先に行データを受け取った場合のエラー
	ErrRunNotStarted = errors.New("実行情報が書き込まれていません")
)

// ValidationError represents a validation error with details
// 詳細付きバリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// StorageError represents a sink or loader error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

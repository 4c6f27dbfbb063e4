package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/internal/config"
	"github.com/nemonet1337/zaiSupplySim/internal/pipeline"
	"github.com/nemonet1337/zaiSupplySim/internal/runstore"
	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

const (
	defaultTransactionLimit = 100
	maxTransactionLimit     = 10000
)

// Runner executes one simulation run
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*simulation.Dataset, error)
}

// Handlers holds HTTP handlers for the simulation API
// シミュレーションAPI用のHTTPハンドラーを保持
type Handlers struct {
	runner   Runner
	store    *runstore.Store
	limits   config.APIConfig
	defaults config.SimulationConfig // リクエストで省略された日付の既定値
	logger   *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(runner Runner, store *runstore.Store, cfg *config.Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		runner:   runner,
		store:    store,
		limits:   cfg.API,
		defaults: cfg.Simulation,
		logger:   logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SimulationRequest represents request to run a simulation
// シミュレーション実行リクエストを表現
type SimulationRequest struct {
	NumProducts int      `json:"num_products"`
	NumStores   int      `json:"num_stores"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Seed        *int64   `json:"seed"`
	Workers     int      `json:"workers"`
	Formats     []string `json:"formats"` // 省略時は設定値、空配列で出力なし
}

// RunResponse is the summary view of a stored run
// 実行結果の概要
type RunResponse struct {
	Run     simulation.RunInfo `json:"run"`
	Summary simulation.Summary `json:"summary"`
}

// ListResponse wraps a filtered row list with its total count
type ListResponse struct {
	Total int         `json:"total"`
	Items interface{} `json:"items"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.sendSuccess(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "zaiSupplySim",
		"runs":      h.store.Len(),
	})
}

// CreateSimulation handles simulation run requests
// シミュレーション実行リクエストを処理
func (h *Handlers) CreateSimulation(w http.ResponseWriter, r *http.Request) {
	// 空のボディは既定設定での実行とみなす
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if msg := h.checkLimits(req); msg != "" {
		h.sendError(w, http.StatusBadRequest, msg)
		return
	}

	ds, err := h.runner.Run(r.Context(), pipeline.Request{
		NumProducts: req.NumProducts,
		NumStores:   req.NumStores,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Seed:        req.Seed,
		Workers:     req.Workers,
		Formats:     req.Formats,
	})
	if err != nil {
		h.logger.Warn("シミュレーション実行に失敗しました", zap.Error(err))
		h.sendError(w, statusFor(err), err.Error())
		return
	}

	h.store.Put(ds)
	h.sendJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    RunResponse{Run: ds.Run, Summary: ds.Result.Summary()},
	})
}

// checkLimits returns a message when the request exceeds the API limits
func (h *Handlers) checkLimits(req SimulationRequest) string {
	switch {
	case req.NumProducts < 0 || req.NumStores < 0 || req.Workers < 0:
		return "商品数・店舗数・ワーカー数は0以上である必要があります"
	case h.limits.MaxProducts > 0 && req.NumProducts > h.limits.MaxProducts:
		return "商品数が上限を超えています: " + strconv.Itoa(h.limits.MaxProducts)
	case h.limits.MaxStores > 0 && req.NumStores > h.limits.MaxStores:
		return "店舗数が上限を超えています: " + strconv.Itoa(h.limits.MaxStores)
	}
	return h.checkSpan(req)
}

// checkSpan rejects date ranges longer than MaxDays; inverted ranges are left to the runner
func (h *Handlers) checkSpan(req SimulationRequest) string {
	if h.limits.MaxDays <= 0 {
		return ""
	}
	startDate, endDate := h.defaults.StartDate, h.defaults.EndDate
	if req.StartDate != "" {
		startDate = req.StartDate
	}
	if req.EndDate != "" {
		endDate = req.EndDate
	}

	start, err := simulation.ParseDate(startDate)
	if err != nil {
		return err.Error()
	}
	end, err := simulation.ParseDate(endDate)
	if err != nil {
		return err.Error()
	}

	// Duration は約292年で飽和するため秒単位で計算
	days := (end.Unix()-start.Unix())/86400 + 1
	if days > int64(h.limits.MaxDays) {
		return "日数が上限を超えています: " + strconv.Itoa(h.limits.MaxDays)
	}
	return ""
}

// statusFor maps run errors to HTTP status codes
func statusFor(err error) int {
	var verr *simulation.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, simulation.ErrInvalidDateRange),
		errors.Is(err, simulation.ErrEmptyCatalog),
		errors.Is(err, simulation.ErrEmptyStoreList),
		errors.Is(err, simulation.ErrDuplicateProduct),
		errors.Is(err, simulation.ErrDuplicateStore):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ListSimulations handles run list requests
// 実行結果一覧を取得
func (h *Handlers) ListSimulations(w http.ResponseWriter, r *http.Request) {
	h.sendSuccess(w, h.store.List())
}

// GetSimulation handles run summary requests
// 実行結果の概要を取得
func (h *Handlers) GetSimulation(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.sendSuccess(w, RunResponse{Run: ds.Run, Summary: ds.Result.Summary()})
}

// GetInventory handles warehouse ledger requests, optionally filtered by product_id
// 倉庫在庫台帳を取得
func (h *Handlers) GetInventory(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.lookup(w, r)
	if !ok {
		return
	}

	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		h.sendSuccess(w, ListResponse{Total: len(ds.Result.Inventory), Items: ds.Result.Inventory})
		return
	}
	if err := simulation.ValidateProductID(productID); err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows := ds.Result.InventoryFor(productID)
	h.sendSuccess(w, ListResponse{Total: len(rows), Items: rows})
}

// GetTransactions handles sales row requests filtered by store_id and product_id
// 販売記録を取得
func (h *Handlers) GetTransactions(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.lookup(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	storeID, productID := query.Get("store_id"), query.Get("product_id")

	// limitパラメータの取得
	limit := defaultTransactionLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = min(parsedLimit, maxTransactionLimit)
		}
	}

	var (
		total int
		items = make([]simulation.TransactionRecord, 0, limit)
	)
	for _, tx := range ds.Result.Transactions {
		if storeID != "" && tx.StoreID != storeID {
			continue
		}
		if productID != "" && tx.ProductID != productID {
			continue
		}
		total++
		if len(items) < limit {
			items = append(items, tx)
		}
	}

	h.sendSuccess(w, ListResponse{Total: total, Items: items})
}

// GetOrders handles factory order requests, optionally filtered by product_id
// 工場発注を取得
func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.lookup(w, r)
	if !ok {
		return
	}

	productID := r.URL.Query().Get("product_id")
	orders := make([]simulation.PendingShipment, 0)
	for _, o := range ds.Result.FactoryOrders {
		if productID == "" || o.ProductID == productID {
			orders = append(orders, o)
		}
	}

	h.sendSuccess(w, ListResponse{Total: len(orders), Items: orders})
}

// lookup resolves {runId}; it writes a 404 response when the run is unknown
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*simulation.Dataset, bool) {
	runID := mux.Vars(r)["runId"]
	ds, err := h.store.Get(runID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return ds, true
}

// ヘルパーメソッド

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	h.sendJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	h.sendJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *Handlers) sendJSON(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

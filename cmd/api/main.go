package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/internal/config"
	"github.com/nemonet1337/zaiSupplySim/internal/metrics"
	"github.com/nemonet1337/zaiSupplySim/internal/pipeline"
	"github.com/nemonet1337/zaiSupplySim/internal/runstore"
	"github.com/nemonet1337/zaiSupplySim/internal/scheduler"
	"github.com/nemonet1337/zaiSupplySim/pkg/logger"
)

func main() {
	envFile := flag.String("env-file", "", "環境変数ファイル（.env）のパス")
	flag.Parse()

	// 設定読み込み
	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("設定読み込みに失敗しました:", err)
	}

	// ログ設定
	base, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer base.Sync()
	appLogger := logger.Named(base, "api")

	// メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	runner := pipeline.New(cfg, logger.Named(base, "pipeline"), recorder)
	store := runstore.New(cfg.API.RunCapacity)

	// 定期実行
	if cfg.API.CronSchedule != "" {
		loc, err := time.LoadLocation(cfg.API.Timezone)
		if err != nil {
			appLogger.Fatal("タイムゾーンの読み込みに失敗しました", zap.Error(err))
		}
		sched := scheduler.New(runner, store, loc, 10*time.Minute, logger.Named(base, "scheduler"))
		if err := sched.Start(cfg.API.CronSchedule); err != nil {
			appLogger.Fatal("スケジューラーの開始に失敗しました", zap.Error(err))
		}
		defer sched.Stop()
	}

	// HTTPハンドラー設定
	handlers := NewHandlers(runner, store, cfg, appLogger)
	var metricsHandler http.Handler
	if cfg.API.EnableMetrics {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}
	router := setupRouter(handlers, metricsHandler)

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// グレースフルシャットダウン設定
	go func() {
		appLogger.Info("シミュレーションAPIサーバーを開始します", zap.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	appLogger.Info("サーバーが正常に停止しました")
}

// setupRouter sets up HTTP routes; metrics may be nil to disable /metrics
// HTTPルートを設定
func setupRouter(handlers *Handlers, metrics http.Handler) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェック
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if metrics != nil {
		router.Handle("/metrics", metrics).Methods("GET")
	}

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// シミュレーション実行・照会
	api.HandleFunc("/simulations", handlers.CreateSimulation).Methods("POST")
	api.HandleFunc("/simulations", handlers.ListSimulations).Methods("GET")
	api.HandleFunc("/simulations/{runId}", handlers.GetSimulation).Methods("GET")
	api.HandleFunc("/simulations/{runId}/inventory", handlers.GetInventory).Methods("GET")
	api.HandleFunc("/simulations/{runId}/transactions", handlers.GetTransactions).Methods("GET")
	api.HandleFunc("/simulations/{runId}/orders", handlers.GetOrders).Methods("GET")

	// CORS設定（開発用）
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// ログ機能
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// リクエスト処理
			next.ServeHTTP(rec, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.Int("status", rec.status),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Package scheduler reruns the configured simulation on a cron schedule
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/internal/pipeline"
	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

// Runner executes one simulation run
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*simulation.Dataset, error)
}

// Store receives the datasets of scheduled runs
type Store interface {
	Put(ds *simulation.Dataset)
}

// Scheduler manages the scheduled simulation job
// 定期シミュレーションジョブを管理
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	store   Store
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a scheduler evaluating schedules in loc
// 新しいスケジューラーを作成
func New(runner Runner, store Store, loc *time.Location, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		// 同時実行しない（前回のジョブが終わるまでスキップ）
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		runner:  runner,
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Start registers the job under schedule (standard five-field cron) and starts the scheduler
// ジョブを登録してスケジューラーを開始
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return fmt.Errorf("無効なcronスケジュール %q: %w", schedule, err)
	}
	s.logger.Info("スケジューラーを開始します", zap.String("schedule", schedule))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
// スケジューラーを停止
func (s *Scheduler) Stop() {
	s.logger.Info("スケジューラーを停止します")
	<-s.cron.Stop().Done()
}

// RunOnce executes the configured simulation and stores the dataset
// 設定どおりにシミュレーションを1回実行
func (s *Scheduler) RunOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ds, err := s.runner.Run(ctx, pipeline.Request{})
	if err != nil {
		s.logger.Error("定期シミュレーションに失敗しました", zap.Error(err))
		if ds == nil {
			return
		}
	}
	s.store.Put(ds)
	s.logger.Info("定期シミュレーションが完了しました", zap.String("run_id", ds.Run.ID))
}

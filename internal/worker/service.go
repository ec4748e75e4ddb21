package worker

import (
	"context"
	"errors"
	"time"

	"github.com/lingxi-works/fincore/internal/config"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultOverdueRefreshInterval = time.Hour

// Service 异步队列服务
type Service struct {
	name            string
	server          *asynq.Server
	mux             *asynq.ServeMux
	consumer        *Consumer
	refreshInterval time.Duration
}

// NewService 创建异步队列服务
// 队列未启用时只运行逾期刷新定时器
func NewService(cfg *config.QueueConfig, consumer *Consumer, overdueRefreshMinutes int) (*Service, error) {
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	svc := &Service{
		name:            "worker",
		consumer:        consumer,
		refreshInterval: overdueRefreshInterval(overdueRefreshMinutes),
	}
	if cfg == nil || !cfg.Enabled {
		logger.Warnw("worker_queue_disabled", "overdue_refresh_interval", svc.refreshInterval.String())
		return svc, nil
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	svc.server = asynq.NewServer(opt, serverCfg)
	svc.mux = asynq.NewServeMux()
	consumer.Register(svc.mux)
	return svc, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	if s.server == nil || s.mux == nil {
		s.runOverdueRefreshLoop(ctx)
		<-ctx.Done()
		return nil
	}
	go s.runOverdueRefreshLoop(ctx)
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runOverdueRefreshLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ContractService == nil {
		return
	}
	runOnce := func() {
		if s.consumer.QueueClient.Enabled() {
			if err := s.consumer.QueueClient.EnqueueOverdueRefresh(queue.OverdueRefreshPayload{}); err != nil {
				logger.Warnw("worker_enqueue_overdue_refresh_failed", "error", err)
			}
			return
		}
		if _, err := s.consumer.ContractService.RefreshOverdue(ctx, 0); err != nil {
			logger.Warnw("worker_overdue_refresh_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func overdueRefreshInterval(minutes int) time.Duration {
	if minutes <= 0 {
		return defaultOverdueRefreshInterval
	}
	return time.Duration(minutes) * time.Minute
}

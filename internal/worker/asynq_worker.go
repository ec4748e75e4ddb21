package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/provider"
	"github.com/lingxi-works/fincore/internal/queue"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSalarySync, c.handleSalarySync)
	mux.HandleFunc(queue.TaskOverdueRefresh, c.handleOverdueRefresh)
}

func (c *Consumer) handleSalarySync(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.SalaryService == nil {
		logger.Debugw("worker_salary_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SalarySyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_salary_sync_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.UserID == 0 || payload.Month == "" {
		logger.Debugw("worker_salary_sync_skip_invalid_payload", "user_id", payload.UserID, "month", payload.Month)
		return nil
	}
	row, err := c.SalaryService.SyncSalaryMonthly(ctx, payload.UserID, payload.Month, payload.ActorID)
	if err != nil {
		logger.Warnw("worker_salary_sync_failed",
			"user_id", payload.UserID,
			"month", payload.Month,
			"retryable", service.IsRetryable(err),
			"error", err,
		)
		return retryPolicy(err)
	}
	logger.Infow("worker_salary_synced",
		"user_id", payload.UserID,
		"month", payload.Month,
		"salary_id", row.ID,
		"commission", row.Commission.String(),
		"total", row.Total.String(),
	)
	return nil
}

func (c *Consumer) handleOverdueRefresh(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.ContractService == nil {
		logger.Debugw("worker_overdue_refresh_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OverdueRefreshPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_overdue_refresh_unmarshal_failed", "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
	}
	updated, err := c.ContractService.RefreshOverdue(ctx, payload.BatchSize)
	if err != nil {
		logger.Warnw("worker_overdue_refresh_failed", "updated", updated, "error", err)
		return retryPolicy(err)
	}
	logger.Debugw("worker_overdue_refreshed", "updated", updated)
	return nil
}

// retryPolicy 输入类错误不再重试，其余交给 asynq 重试
func retryPolicy(err error) error {
	switch service.KindOf(err) {
	case service.KindInvalid, service.KindNotFound:
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}

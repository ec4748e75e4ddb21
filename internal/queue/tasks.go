package queue

import (
	"encoding/json"

	"github.com/lingxi-works/fincore/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSalarySync 月度薪资提成重算任务
	TaskSalarySync = constants.TaskSalarySync
	// TaskOverdueRefresh 分期逾期状态刷新任务
	TaskOverdueRefresh = constants.TaskOverdueRefresh
)

// SalarySyncPayload 薪资重算任务载荷
type SalarySyncPayload struct {
	UserID  uint   `json:"user_id"`
	Month   string `json:"month"`
	ActorID uint   `json:"actor_id"`
}

// OverdueRefreshPayload 逾期刷新任务载荷
type OverdueRefreshPayload struct {
	BatchSize int `json:"batch_size"`
}

// NewSalarySyncTask 创建薪资重算任务
func NewSalarySyncTask(payload SalarySyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalarySync, body), nil
}

// NewOverdueRefreshTask 创建逾期刷新任务
func NewOverdueRefreshTask(payload OverdueRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueRefresh, body), nil
}

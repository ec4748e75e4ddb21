package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SalaryService 月度薪资汇总服务
type SalaryService struct {
	salaryRepo    repository.SalaryRepository
	userRepo      repository.UserRepository
	commissionSvc *CommissionService
	currencySvc   *CurrencyService
}

// NewSalaryService 创建薪资服务
func NewSalaryService(
	salaryRepo repository.SalaryRepository,
	userRepo repository.UserRepository,
	commissionSvc *CommissionService,
	currencySvc *CurrencyService,
) *SalaryService {
	return &SalaryService{
		salaryRepo:    salaryRepo,
		userRepo:      userRepo,
		commissionSvc: commissionSvc,
		currencySvc:   currencySvc,
	}
}

// SalaryFieldsInput 薪资手工字段，nil 表示保持不变
type SalaryFieldsInput struct {
	UserID     uint
	Month      string
	BaseSalary *models.Money
	Attendance *models.Money
	Incentive  *models.Money
	Adjustment *models.Money
	Deduction  *models.Money
	ActorID    uint
}

// SalaryTotal total = 底薪 + 全勤 + 提成 + 激励 + 调整 - 扣款
func SalaryTotal(row *models.SalaryMonthly) decimal.Decimal {
	return row.BaseSalary.Decimal.
		Add(row.Attendance.Decimal).
		Add(row.Commission.Decimal).
		Add(row.Incentive.Decimal).
		Add(row.Adjustment.Decimal).
		Sub(row.Deduction.Decimal).
		Round(2)
}

// SyncSalaryMonthly 用实时提成结果刷新员工月度薪资（不存在则创建）
func (s *SalaryService) SyncSalaryMonthly(ctx context.Context, userID uint, month string, actorID uint) (*models.SalaryMonthly, error) {
	return s.upsert(ctx, userID, month, actorID, nil)
}

// SaveSalaryFields 更新手工字段并同步重算提成与合计
func (s *SalaryService) SaveSalaryFields(ctx context.Context, input SalaryFieldsInput) (*models.SalaryMonthly, error) {
	for field, value := range map[string]*models.Money{
		"base_salary": input.BaseSalary,
		"attendance":  input.Attendance,
		"incentive":   input.Incentive,
		"deduction":   input.Deduction,
	} {
		if value != nil && value.Decimal.IsNegative() {
			return nil, newValidationError(field, "%s must not be negative", field)
		}
	}
	return s.upsert(ctx, input.UserID, input.Month, input.ActorID, func(row *models.SalaryMonthly) {
		assignMoney(&row.BaseSalary, input.BaseSalary)
		assignMoney(&row.Attendance, input.Attendance)
		assignMoney(&row.Incentive, input.Incentive)
		assignMoney(&row.Adjustment, input.Adjustment)
		assignMoney(&row.Deduction, input.Deduction)
	})
}

func (s *SalaryService) upsert(ctx context.Context, userID uint, month string, actorID uint, mutate func(row *models.SalaryMonthly)) (*models.SalaryMonthly, error) {
	start, _, err := monthRange(month)
	if err != nil {
		return nil, err
	}
	month = start.Format(constants.MonthLayout)
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &NotFoundError{Entity: "user", ID: userID}
	}

	commission, err := s.commissionSvc.CalculateCommission(ctx, userID, month, nil)
	if err != nil {
		return nil, err
	}
	detail, err := json.Marshal(commission)
	if err != nil {
		return nil, err
	}
	table, err := s.currencySvc.Table(ctx)
	if err != nil {
		return nil, err
	}

	var saved *models.SalaryMonthly
	err = s.salaryRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.salaryRepo.WithTx(tx)
		row, err := repo.GetByUserMonthForUpdate(userID, month)
		if err != nil {
			return err
		}
		if row == nil {
			row = &models.SalaryMonthly{
				UserID:   userID,
				Month:    month,
				Currency: s.currencySvc.HomeCurrency(),
			}
		}
		if mutate != nil {
			mutate(row)
		}
		payable := Convert(commission.Payable.Decimal, commission.RuleCurrency, row.Currency, RateFixed, table)
		row.Commission = models.NewMoneyFromDecimal(payable)
		row.CommissionDetail = datatypes.JSON(detail)
		row.Total = models.NewMoneyFromDecimal(SalaryTotal(row))
		now := time.Now()
		row.SyncedAt = &now
		row.UpdatedBy = actorID
		if err := repo.Save(row); err != nil {
			if repository.IsUniqueViolation(err, "") {
				return &ConcurrencyConflictError{Op: "sync salary", Err: err}
			}
			return err
		}
		saved = row
		return nil
	})
	if err != nil {
		return nil, wrapTxError("sync salary", err)
	}
	logger.Infow("salary_monthly_synced",
		"user_id", userID,
		"month", month,
		"commission", saved.Commission.String(),
		"total", saved.Total.String(),
		"actor_id", actorID,
	)
	return saved, nil
}

// GetSalary 查询员工月度薪资
func (s *SalaryService) GetSalary(userID uint, month string) (*models.SalaryMonthly, error) {
	start, _, err := monthRange(month)
	if err != nil {
		return nil, err
	}
	row, err := s.salaryRepo.GetByUserMonth(userID, start.Format(constants.MonthLayout))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &NotFoundError{Entity: "salary", ID: userID}
	}
	return row, nil
}

// ListSalaries 月度薪资列表
func (s *SalaryService) ListSalaries(filter repository.SalaryListFilter) ([]models.SalaryMonthly, int64, error) {
	return s.salaryRepo.List(filter)
}

func assignMoney(target *models.Money, value *models.Money) {
	if value == nil {
		return
	}
	*target = models.NewMoneyFromDecimal(value.Decimal)
}

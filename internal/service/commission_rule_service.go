package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const commissionRuleNameMaxLen = 80

// CommissionRuleService 提成规则维护
type CommissionRuleService struct {
	ruleRepo repository.CommissionRuleRepository
	userRepo repository.UserRepository
}

// NewCommissionRuleService 创建提成规则服务
func NewCommissionRuleService(ruleRepo repository.CommissionRuleRepository, userRepo repository.UserRepository) *CommissionRuleService {
	return &CommissionRuleService{ruleRepo: ruleRepo, userRepo: userRepo}
}

// TierInput 阶梯输入
type TierInput struct {
	From      models.Money
	To        decimal.NullDecimal
	Rate      decimal.Decimal
	SortOrder int
}

// SaveRuleInput 保存规则输入，ID 为 0 时新建（新建规则默认停用）
type SaveRuleInput struct {
	ID            uint
	Name          string
	RuleType      string
	FixedRate     decimal.Decimal
	Currency      string
	IncludePrepay bool
	Tiers         []TierInput
	UserIDs       []uint
	DepartmentIDs []uint
	ActorID       uint
}

// SaveRule 校验并保存规则，阶梯与范围整体替换
func (s *CommissionRuleService) SaveRule(ctx context.Context, input SaveRuleInput) (*models.CommissionRule, error) {
	draft, err := buildRuleDraft(input)
	if err != nil {
		return nil, err
	}

	var saved *models.CommissionRule
	err = s.ruleRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.ruleRepo.WithTx(tx)
		if input.ID == 0 {
			draft.CreatedBy = input.ActorID
			if err := repo.Create(draft); err != nil {
				return err
			}
			saved = draft
			return nil
		}
		existing, err := repo.GetByID(input.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return &NotFoundError{Entity: "commission rule", ID: input.ID}
		}
		draft.ID = existing.ID
		draft.IsActive = existing.IsActive
		draft.CreatedBy = existing.CreatedBy
		draft.CreatedAt = existing.CreatedAt
		if err := repo.Update(draft); err != nil {
			return err
		}
		if draft.IsActive {
			if err := deactivateConflicting(repo, draft); err != nil {
				return err
			}
		}
		saved = draft
		return nil
	})
	if err != nil {
		return nil, wrapTxError("save commission rule", err)
	}
	logger.Infow("commission_rule_saved",
		"rule_id", saved.ID,
		"rule_type", saved.RuleType,
		"tiers", len(saved.Tiers),
		"scopes", len(saved.Scopes),
		"actor_id", input.ActorID,
	)
	return saved, nil
}

// SetRuleActive 启用或停用规则；启用时停用作用范围重叠的其他启用规则
func (s *CommissionRuleService) SetRuleActive(ctx context.Context, ruleID uint, active bool, actorID uint) (*models.CommissionRule, error) {
	var updated *models.CommissionRule
	err := s.ruleRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.ruleRepo.WithTx(tx)
		rule, err := repo.GetByID(ruleID)
		if err != nil {
			return err
		}
		if rule == nil {
			return &NotFoundError{Entity: "commission rule", ID: ruleID}
		}
		if active {
			if err := deactivateConflicting(repo, rule); err != nil {
				return err
			}
		}
		if err := repo.SetActive(rule.ID, active); err != nil {
			return err
		}
		rule.IsActive = active
		updated = rule
		return nil
	})
	if err != nil {
		return nil, wrapTxError("set commission rule active", err)
	}
	logger.Infow("commission_rule_active_changed", "rule_id", ruleID, "active", active, "actor_id", actorID)
	return updated, nil
}

// ActiveRule 返回唯一的无范围启用规则；存在多条时返回 ErrMultipleActiveRules
func (s *CommissionRuleService) ActiveRule() (*models.CommissionRule, error) {
	return activeRuleForUser(s.ruleRepo, nil)
}

// RuleForUser 按 员工 -> 部门 -> 全局 顺序解析员工适用规则
func (s *CommissionRuleService) RuleForUser(userID uint) (*models.CommissionRule, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &NotFoundError{Entity: "user", ID: userID}
	}
	return activeRuleForUser(s.ruleRepo, user)
}

// GetRule 规则详情
func (s *CommissionRuleService) GetRule(ruleID uint) (*models.CommissionRule, error) {
	rule, err := s.ruleRepo.GetByID(ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, &NotFoundError{Entity: "commission rule", ID: ruleID}
	}
	return rule, nil
}

// ListRules 规则列表
func (s *CommissionRuleService) ListRules() ([]models.CommissionRule, error) {
	return s.ruleRepo.List()
}

func buildRuleDraft(input SaveRuleInput) (*models.CommissionRule, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || utf8.RuneCountInString(name) > commissionRuleNameMaxLen {
		return nil, newValidationError("name", "name is required and must not exceed %d characters", commissionRuleNameMaxLen)
	}
	currency, err := normalizeCurrency("currency", input.Currency, constants.CurrencyCNY, constants.RuleCurrencies)
	if err != nil {
		return nil, err
	}
	rule := &models.CommissionRule{
		Name:          name,
		RuleType:      strings.ToLower(strings.TrimSpace(input.RuleType)),
		Currency:      currency,
		IncludePrepay: input.IncludePrepay,
		FixedRate:     decimal.Zero,
	}

	switch rule.RuleType {
	case constants.CommissionRuleFixed:
		if !rateInUnitRange(input.FixedRate) {
			return nil, newValidationError("fixed_rate", "fixed rate must be within [0,1]")
		}
		rule.FixedRate = input.FixedRate
	case constants.CommissionRuleTier:
		if len(input.Tiers) == 0 {
			return nil, newValidationError("tiers", "tier rule requires at least one tier")
		}
		for i, tier := range input.Tiers {
			from := tier.From.Decimal.Round(2)
			if from.IsNegative() {
				return nil, newValidationError("tiers", "tier %d from must not be negative", i+1)
			}
			to := tier.To
			if to.Valid {
				to.Decimal = to.Decimal.Round(2)
				if !to.Decimal.GreaterThan(from) {
					return nil, newValidationError("tiers", "tier %d to must be greater than from", i+1)
				}
			}
			if !rateInUnitRange(tier.Rate) {
				return nil, newValidationError("tiers", "tier %d rate must be within [0,1]", i+1)
			}
			sortOrder := tier.SortOrder
			if sortOrder == 0 {
				sortOrder = i + 1
			}
			rule.Tiers = append(rule.Tiers, models.CommissionTier{
				FromAmount: models.NewMoneyFromDecimal(from),
				ToAmount:   to,
				Rate:       tier.Rate,
				SortOrder:  sortOrder,
			})
		}
		sort.SliceStable(rule.Tiers, func(i, j int) bool {
			return rule.Tiers[i].SortOrder < rule.Tiers[j].SortOrder
		})
	default:
		return nil, newValidationError("rule_type", "rule type must be fixed or tier")
	}

	for _, id := range uniqueIDs(input.UserIDs) {
		userID := id
		rule.Scopes = append(rule.Scopes, models.CommissionRuleScope{UserID: &userID})
	}
	for _, id := range uniqueIDs(input.DepartmentIDs) {
		deptID := id
		rule.Scopes = append(rule.Scopes, models.CommissionRuleScope{DepartmentID: &deptID})
	}
	return rule, nil
}

// deactivateConflicting 停用与 rule 作用范围重叠（含同为全局规则）的其他启用规则
func deactivateConflicting(repo repository.CommissionRuleRepository, rule *models.CommissionRule) error {
	active, err := repo.ListActive()
	if err != nil {
		return err
	}
	for i := range active {
		other := &active[i]
		if other.ID == rule.ID || !scopesOverlap(rule.Scopes, other.Scopes) {
			continue
		}
		if err := repo.SetActive(other.ID, false); err != nil {
			return err
		}
		logger.Infow("commission_rule_deactivated", "rule_id", other.ID, "superseded_by", rule.ID)
	}
	return nil
}

func scopesOverlap(a, b []models.CommissionRuleScope) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	for _, x := range a {
		for _, y := range b {
			if x.UserID != nil && y.UserID != nil && *x.UserID == *y.UserID {
				return true
			}
			if x.DepartmentID != nil && y.DepartmentID != nil && *x.DepartmentID == *y.DepartmentID {
				return true
			}
		}
	}
	return false
}

func rateInUnitRange(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(one)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

package admin

import (
	"strconv"
	"strings"

	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CommissionTierRequest 阶梯档位
type CommissionTierRequest struct {
	From      models.Money        `json:"from"`
	To        decimal.NullDecimal `json:"to"`
	Rate      decimal.Decimal     `json:"rate"`
	SortOrder int                 `json:"sort_order"`
}

// SaveCommissionRuleRequest 提成规则保存请求
type SaveCommissionRuleRequest struct {
	Name          string                  `json:"name" binding:"required"`
	RuleType      string                  `json:"rule_type" binding:"required"`
	FixedRate     decimal.Decimal         `json:"fixed_rate"`
	Currency      string                  `json:"currency"`
	IncludePrepay bool                    `json:"include_prepay"`
	Tiers         []CommissionTierRequest `json:"tiers"`
	UserIDs       []uint                  `json:"user_ids"`
	DepartmentIDs []uint                  `json:"department_ids"`
}

// CreateCommissionAdjustmentRequest 提成调整请求
type CreateCommissionAdjustmentRequest struct {
	UserID   uint            `json:"user_id" binding:"required"`
	Month    string          `json:"month" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Reason   string          `json:"reason"`
}

// GetCommissionRules 规则列表
func (h *Handler) GetCommissionRules(c *gin.Context) {
	rules, err := h.CommissionRuleService.ListRules()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rules)
}

// GetCommissionRule 规则详情
func (h *Handler) GetCommissionRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rule, err := h.CommissionRuleService.GetRule(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rule)
}

// CreateCommissionRule 新建规则（默认停用）
func (h *Handler) CreateCommissionRule(c *gin.Context) {
	h.saveCommissionRule(c, 0)
}

// UpdateCommissionRule 更新规则
func (h *Handler) UpdateCommissionRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.saveCommissionRule(c, id)
}

func (h *Handler) saveCommissionRule(c *gin.Context, id uint) {
	var req SaveCommissionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	tiers := make([]service.TierInput, 0, len(req.Tiers))
	for _, tier := range req.Tiers {
		tiers = append(tiers, service.TierInput{
			From:      tier.From,
			To:        tier.To,
			Rate:      tier.Rate,
			SortOrder: tier.SortOrder,
		})
	}
	rule, err := h.CommissionRuleService.SaveRule(c.Request.Context(), service.SaveRuleInput{
		ID:            id,
		Name:          req.Name,
		RuleType:      req.RuleType,
		FixedRate:     req.FixedRate,
		Currency:      req.Currency,
		IncludePrepay: req.IncludePrepay,
		Tiers:         tiers,
		UserIDs:       req.UserIDs,
		DepartmentIDs: req.DepartmentIDs,
		ActorID:       actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rule)
}

// ActivateCommissionRule 启用规则，同作用域的其他规则被停用
func (h *Handler) ActivateCommissionRule(c *gin.Context) {
	h.setCommissionRuleActive(c, true)
}

// DeactivateCommissionRule 停用规则
func (h *Handler) DeactivateCommissionRule(c *gin.Context) {
	h.setCommissionRuleActive(c, false)
}

func (h *Handler) setCommissionRuleActive(c *gin.Context, active bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rule, err := h.CommissionRuleService.SetRuleActive(c.Request.Context(), id, active, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rule)
}

// GetCommission 计算员工月度提成
func (h *Handler) GetCommission(c *gin.Context) {
	userID, err := strconv.ParseUint(strings.TrimSpace(c.Query("user_id")), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "user_id invalid", nil)
		return
	}
	query := service.CommissionQuery{
		UserID:          uint(userID),
		Month:           strings.TrimSpace(c.Query("month")),
		RateType:        service.RateKind(strings.TrimSpace(c.Query("rate_type"))),
		DisplayCurrency: strings.ToUpper(strings.TrimSpace(c.Query("display_currency"))),
	}
	if raw := strings.TrimSpace(c.Query("rule_id")); raw != "" {
		ruleID, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil || ruleID == 0 {
			respondError(c, response.CodeBadRequest, "rule_id invalid", nil)
			return
		}
		id := uint(ruleID)
		query.RuleID = &id
	}

	result, err := h.CommissionService.Calculate(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// CreateCommissionAdjustment 新增提成手工调整
func (h *Handler) CreateCommissionAdjustment(c *gin.Context) {
	var req CreateCommissionAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	adjustment, err := h.CommissionService.AddAdjustment(service.AddAdjustmentInput{
		UserID:   req.UserID,
		Month:    req.Month,
		Amount:   req.Amount,
		Currency: req.Currency,
		Reason:   req.Reason,
		ActorID:  actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, adjustment)
}

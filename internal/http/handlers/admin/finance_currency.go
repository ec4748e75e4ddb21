package admin

import (
	"strings"

	handlershared "github.com/lingxi-works/fincore/internal/http/handlers/shared"
	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/repository"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// UpdateCurrencyRateRequest 汇率调整请求
type UpdateCurrencyRateRequest struct {
	RateType string          `json:"rate_type" binding:"required"`
	Rate     decimal.Decimal `json:"rate"`
}

// GetCurrencies 币种及汇率列表
func (h *Handler) GetCurrencies(c *gin.Context) {
	items, err := h.CurrencyService.List()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"home_currency": h.CurrencyService.HomeCurrency(),
		"items":         items,
	})
}

// UpdateCurrencyRate 调整固定或浮动汇率
func (h *Handler) UpdateCurrencyRate(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	var req UpdateCurrencyRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	currency, err := h.CurrencyService.UpdateRate(c.Request.Context(), service.UpdateRateInput{
		Code:     code,
		RateType: service.RateKind(strings.TrimSpace(req.RateType)),
		Rate:     req.Rate,
		ActorID:  actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, currency)
}

// GetExchangeRateHistory 汇率调整历史
func (h *Handler) GetExchangeRateHistory(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	items, total, err := h.CurrencyService.ListHistory(repository.ExchangeRateHistoryFilter{
		Page:         page,
		PageSize:     pageSize,
		CurrencyCode: strings.ToUpper(strings.TrimSpace(c.Query("currency"))),
		RateType:     strings.TrimSpace(c.Query("rate_type")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

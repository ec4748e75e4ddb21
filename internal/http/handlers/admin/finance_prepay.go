package admin

import (
	"strings"

	handlershared "github.com/lingxi-works/fincore/internal/http/handlers/shared"
	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/gin-gonic/gin"
)

// ApplyPrepayRequest 预收抵扣请求
type ApplyPrepayRequest struct {
	CustomerID    uint         `json:"customer_id" binding:"required"`
	InstallmentID uint         `json:"installment_id" binding:"required"`
	Amount        models.Money `json:"amount"`
	AppliedDate   string       `json:"applied_date"`
	Note          string       `json:"note"`
}

// AdjustPrepayRequest 预收手工调整请求
type AdjustPrepayRequest struct {
	CustomerID uint         `json:"customer_id" binding:"required"`
	Direction  string       `json:"direction" binding:"required"`
	Amount     models.Money `json:"amount"`
	Currency   string       `json:"currency"`
	Note       string       `json:"note"`
}

// GetCustomerPrepay 客户预收余额及流水
func (h *Handler) GetCustomerPrepay(c *gin.Context) {
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	balance, err := h.PrepayService.Balance(customerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	page, pageSize := handlershared.ReadPagination(c)
	filter := repository.PrepayLedgerListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: customerID,
		Direction:  strings.TrimSpace(c.Query("direction")),
		SourceType: strings.TrimSpace(c.Query("source_type")),
	}
	if filter.CreatedFrom, ok = queryDate(c, "created_from"); !ok {
		return
	}
	if filter.CreatedTo, ok = queryDate(c, "created_to"); !ok {
		return
	}
	entries, total, err := h.PrepayService.ListLedger(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"customer_id": customerID,
		"balance":     balance,
		"ledger":      entries,
		"pagination":  handlershared.BuildPagination(page, pageSize, total),
	})
}

// ApplyPrepay 使用预收余额冲抵分期
func (h *Handler) ApplyPrepay(c *gin.Context) {
	var req ApplyPrepayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	result, err := h.PrepayService.ApplyPrepayToInstallment(c.Request.Context(), service.ApplyPrepayInput{
		CustomerID:    req.CustomerID,
		InstallmentID: req.InstallmentID,
		Amount:        req.Amount,
		AppliedDate:   req.AppliedDate,
		Note:          req.Note,
		ActorID:       actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// AdjustPrepay 手工调整预收余额
func (h *Handler) AdjustPrepay(c *gin.Context) {
	var req AdjustPrepayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	entry, err := h.PrepayService.ManualAdjust(c.Request.Context(), service.ManualAdjustInput{
		CustomerID: req.CustomerID,
		Direction:  req.Direction,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Note:       req.Note,
		ActorID:    actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, entry)
}

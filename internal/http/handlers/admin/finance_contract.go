package admin

import (
	"strings"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
	handlershared "github.com/lingxi-works/fincore/internal/http/handlers/shared"
	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// InstallmentRequest 分期计划行
type InstallmentRequest struct {
	DueDate         string       `json:"due_date" binding:"required"`
	Amount          models.Money `json:"amount"`
	CollectorUserID *uint        `json:"collector_user_id"`
	Method          string       `json:"method"`
	Currency        string       `json:"currency"`
}

// CreateContractRequest 合同登记请求
type CreateContractRequest struct {
	CustomerID     uint                 `json:"customer_id" binding:"required"`
	SalesUserID    uint                 `json:"sales_user_id" binding:"required"`
	ContractNo     string               `json:"contract_no"`
	Title          string               `json:"title"`
	SignDate       string               `json:"sign_date" binding:"required"`
	GrossAmount    models.Money         `json:"gross_amount"`
	DiscountType   string               `json:"discount_type"`
	DiscountValue  decimal.Decimal      `json:"discount_value"`
	DiscountInCalc bool                 `json:"discount_in_calc"`
	Currency       string               `json:"currency"`
	Note           string               `json:"note"`
	Installments   []InstallmentRequest `json:"installments"`
}

// VoidContractRequest 作废合同请求
type VoidContractRequest struct {
	Reason string `json:"reason"`
}

// CreateContract 登记合同及分期计划
func (h *Handler) CreateContract(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	schedule := make([]service.InstallmentInput, 0, len(req.Installments))
	for _, item := range req.Installments {
		schedule = append(schedule, service.InstallmentInput{
			DueDate:         item.DueDate,
			Amount:          item.Amount,
			CollectorUserID: item.CollectorUserID,
			Method:          item.Method,
			Currency:        item.Currency,
		})
	}

	result, err := h.ContractService.RegisterContract(c.Request.Context(), service.RegisterContractInput{
		CustomerID:     req.CustomerID,
		SalesUserID:    req.SalesUserID,
		ContractNo:     req.ContractNo,
		Title:          req.Title,
		SignDate:       req.SignDate,
		GrossAmount:    req.GrossAmount,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		DiscountInCalc: req.DiscountInCalc,
		Currency:       req.Currency,
		Note:           req.Note,
		Installments:   schedule,
		ActorID:        actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// GetContracts 合同列表
func (h *Handler) GetContracts(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	filter := repository.ContractListFilter{
		Page:        page,
		PageSize:    pageSize,
		CustomerID:  handlershared.QueryUint(c, "customer_id"),
		SalesUserID: handlershared.QueryUint(c, "sales_user_id"),
		Status:      strings.TrimSpace(c.Query("status")),
		Keyword:     strings.TrimSpace(c.Query("keyword")),
	}
	var ok bool
	if filter.SignedFrom, ok = queryDate(c, "signed_from"); !ok {
		return
	}
	if filter.SignedTo, ok = queryDate(c, "signed_to"); !ok {
		return
	}

	items, total, err := h.ContractService.ListContracts(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetContract 合同详情（含分期）
func (h *Handler) GetContract(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	contract, err := h.ContractService.GetContract(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, contract)
}

// VoidContract 作废合同
func (h *Handler) VoidContract(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req VoidContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	contract, err := h.ContractService.VoidContract(c.Request.Context(), id, actorID(c), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, contract)
}

// GetInstallments 分期列表
func (h *Handler) GetInstallments(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	filter := repository.InstallmentListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: handlershared.QueryUint(c, "customer_id"),
		ContractID: handlershared.QueryUint(c, "contract_id"),
		Status:     strings.TrimSpace(c.Query("status")),
	}
	var ok bool
	if filter.DueFrom, ok = queryDate(c, "due_from"); !ok {
		return
	}
	if filter.DueTo, ok = queryDate(c, "due_to"); !ok {
		return
	}

	items, total, err := h.ContractService.ListInstallments(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// RefreshOverdue 立即刷新分期逾期状态
func (h *Handler) RefreshOverdue(c *gin.Context) {
	updated, err := h.ContractService.RefreshOverdue(c.Request.Context(), 0)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": updated})
}

// queryDate 读取可选的 YYYY-MM-DD 查询参数
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	parsed, err := time.ParseInLocation(constants.DateLayout, raw, time.UTC)
	if err != nil {
		respondError(c, response.CodeBadRequest, name+" must be YYYY-MM-DD", nil)
		return nil, false
	}
	return &parsed, true
}

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

// CreateReceiptRequest 收款登记请求
type CreateReceiptRequest struct {
	InstallmentID   uint         `json:"installment_id" binding:"required"`
	CustomerID      uint         `json:"customer_id"`
	ReceivedDate    string       `json:"received_date" binding:"required"`
	AmountReceived  models.Money `json:"amount_received"`
	PrepayAmount    models.Money `json:"prepay_amount"`
	Method          string       `json:"method"`
	Currency        string       `json:"currency"`
	CollectorUserID *uint        `json:"collector_user_id"`
	Note            string       `json:"note"`
}

// AttachReceiptFileRequest 收款凭证请求
type AttachReceiptFileRequest struct {
	FileID string `json:"file_id" binding:"required"`
}

// CreateReceipt 登记收款，超出未收部分转入预收
func (h *Handler) CreateReceipt(c *gin.Context) {
	var req CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	summary, err := h.ReceiptService.RegisterReceipt(c.Request.Context(), service.RegisterReceiptInput{
		InstallmentID:   req.InstallmentID,
		CustomerID:      req.CustomerID,
		ReceivedDate:    req.ReceivedDate,
		AmountReceived:  req.AmountReceived,
		PrepayAmount:    req.PrepayAmount,
		Method:          req.Method,
		Currency:        req.Currency,
		CollectorUserID: req.CollectorUserID,
		Note:            req.Note,
		ActorID:         actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, summary)
}

// GetReceipts 收款列表
func (h *Handler) GetReceipts(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	filter := repository.ReceiptListFilter{
		Page:          page,
		PageSize:      pageSize,
		CustomerID:    handlershared.QueryUint(c, "customer_id"),
		ContractID:    handlershared.QueryUint(c, "contract_id"),
		InstallmentID: handlershared.QueryUint(c, "installment_id"),
		SourceType:    strings.TrimSpace(c.Query("source_type")),
	}
	var ok bool
	if filter.ReceivedFrom, ok = queryDate(c, "received_from"); !ok {
		return
	}
	if filter.ReceivedTo, ok = queryDate(c, "received_to"); !ok {
		return
	}

	items, total, err := h.ReceiptService.ListReceipts(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetReceipt 收款详情
func (h *Handler) GetReceipt(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	receipt, err := h.ReceiptService.GetReceipt(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, receipt)
}

// AttachReceiptFile 关联收款凭证
func (h *Handler) AttachReceiptFile(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AttachReceiptFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	file, err := h.ReceiptService.AttachReceiptFile(c.Request.Context(), id, req.FileID, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, file)
}

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

// UpdateSalaryRequest 薪资手工字段，未传字段保持不变
type UpdateSalaryRequest struct {
	BaseSalary *models.Money `json:"base_salary"`
	Attendance *models.Money `json:"attendance"`
	Incentive  *models.Money `json:"incentive"`
	Adjustment *models.Money `json:"adjustment"`
	Deduction  *models.Money `json:"deduction"`
}

// GetSalaries 月度薪资列表
func (h *Handler) GetSalaries(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	items, total, err := h.SalaryService.ListSalaries(repository.SalaryListFilter{
		Page:     page,
		PageSize: pageSize,
		Month:    strings.TrimSpace(c.Query("month")),
		UserID:   handlershared.QueryUint(c, "user_id"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetSalary 员工月度薪资
func (h *Handler) GetSalary(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}
	row, err := h.SalaryService.GetSalary(userID, strings.TrimSpace(c.Param("month")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, row)
}

// UpdateSalary 保存薪资手工字段并重算合计
func (h *Handler) UpdateSalary(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}
	var req UpdateSalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	row, err := h.SalaryService.SaveSalaryFields(c.Request.Context(), service.SalaryFieldsInput{
		UserID:     userID,
		Month:      strings.TrimSpace(c.Param("month")),
		BaseSalary: req.BaseSalary,
		Attendance: req.Attendance,
		Incentive:  req.Incentive,
		Adjustment: req.Adjustment,
		Deduction:  req.Deduction,
		ActorID:    actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, row)
}

// SyncSalary 用实时提成刷新月度薪资
func (h *Handler) SyncSalary(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}
	row, err := h.SalaryService.SyncSalaryMonthly(c.Request.Context(), userID, strings.TrimSpace(c.Param("month")), actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, row)
}

package admin

import (
	handlershared "github.com/lingxi-works/fincore/internal/http/handlers/shared"
	"github.com/lingxi-works/fincore/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetCustomers 客户列表
func (h *Handler) GetCustomers(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	items, total, err := h.CustomerRepo.List(c.Query("keyword"), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "customer fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

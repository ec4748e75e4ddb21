package admin

import (
	handlershared "github.com/lingxi-works/fincore/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

// actorID 当前操作员 ID，用于审计字段；未登录上下文返回 0
func actorID(c *gin.Context) uint {
	if value, ok := c.Get("admin_id"); ok {
		if id, ok := value.(uint); ok {
			return id
		}
	}
	return 0
}

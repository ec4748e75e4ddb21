package admin

import (
	"errors"
	"strings"

	"github.com/lingxi-works/fincore/internal/authz"
	handlershared "github.com/lingxi-works/fincore/internal/http/handlers/shared"
	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/repository"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/gin-gonic/gin"
)

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 获取当前操作员权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "authz fetch failed", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "authz fetch failed", err)
		return
	}

	isSuper := false
	if value, exists := c.Get("admin_is_super"); exists {
		if flag, typeOK := value.(bool); typeOK {
			isSuper = flag
		}
	}

	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": isSuper,
		"roles":    roles,
		"policies": policies,
	})
}

// ListAuthzRoles 获取预置角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "authz fetch failed", err)
		return
	}
	response.Success(c, roles)
}

// ListAuthzAdmins 获取操作员及其角色
func (h *Handler) ListAuthzAdmins(c *gin.Context) {
	admins, err := h.AdminRepo.List()
	if err != nil {
		respondError(c, response.CodeInternal, "admin fetch failed", err)
		return
	}

	items := make([]gin.H, 0, len(admins))
	for _, admin := range admins {
		roles, roleErr := h.AuthzService.GetAdminRoles(admin.ID)
		if roleErr != nil {
			respondError(c, response.CodeInternal, "authz fetch failed", roleErr)
			return
		}
		items = append(items, gin.H{
			"id":            admin.ID,
			"username":      admin.Username,
			"user_id":       admin.UserID,
			"is_super":      admin.IsSuper,
			"last_login_at": admin.LastLoginAt,
			"created_at":    admin.CreatedAt,
			"roles":         roles,
		})
	}

	response.Success(c, items)
}

// GetAuthzAdminRoles 查询指定操作员角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "authz fetch failed", err)
		return
	}
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}

// SetAuthzAdminRoles 覆盖设置操作员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin fetch failed", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "admin not found", nil)
		return
	}

	before, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "authz fetch failed", err)
		return
	}
	roles, err := h.AuthzService.SetAdminRoles(adminID, req.Roles)
	if err != nil {
		if errors.Is(err, authz.ErrUnknownRole) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "authz save failed", err)
		return
	}
	if err := h.AuthzAuditService.RecordRoleChange(service.RoleChangeInput{
		OperatorAdminID: actorID(c),
		TargetAdminID:   adminID,
		Before:          before,
		After:           roles,
		RequestID:       response.RequestID(c),
	}); err != nil {
		requestLog(c).Warnw("authz_audit_record_failed", "target_admin_id", adminID, "error", err)
	}
	requestLog(c).Infow("admin_roles_updated",
		"operator_admin_id", actorID(c),
		"target_admin_id", adminID,
		"roles", roles,
	)
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}

// ListAuthzAuditLogs 角色变更审计列表
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	filter := repository.AuthzAuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: handlershared.QueryUint(c, "operator_admin_id"),
		TargetAdminID:   handlershared.QueryUint(c, "target_admin_id"),
		Action:          strings.TrimSpace(c.Query("action")),
	}
	var ok bool
	if filter.CreatedFrom, ok = queryDate(c, "created_from"); !ok {
		return
	}
	if filter.CreatedTo, ok = queryDate(c, "created_to"); !ok {
		return
	}
	items, total, err := h.AuthzAuditService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "authz audit fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

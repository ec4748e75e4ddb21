package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"

	"gorm.io/datatypes"
)

// AuthzAuditActionRolesUpdated 覆盖设置操作员角色
const AuthzAuditActionRolesUpdated = "admin_roles_updated"

// RoleChangeInput 角色变更审计输入
type RoleChangeInput struct {
	OperatorAdminID uint
	TargetAdminID   uint
	Before          []string
	After           []string
	RequestID       string
}

// AuthzAuditService 角色变更审计服务
type AuthzAuditService struct {
	repo repository.AuthzAuditLogRepository
}

// NewAuthzAuditService 创建角色变更审计服务
func NewAuthzAuditService(repo repository.AuthzAuditLogRepository) *AuthzAuditService {
	return &AuthzAuditService{repo: repo}
}

// RecordRoleChange 记录一次角色覆盖设置
func (s *AuthzAuditService) RecordRoleChange(input RoleChangeInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if input.TargetAdminID == 0 {
		return newValidationError("target_admin_id", "target admin is required")
	}
	detail, err := json.Marshal(map[string][]string{
		"before": nonNilRoles(input.Before),
		"after":  nonNilRoles(input.After),
	})
	if err != nil {
		return fmt.Errorf("marshal role change detail: %w", err)
	}
	return s.repo.Create(&models.AuthzAuditLog{
		OperatorAdminID: input.OperatorAdminID,
		TargetAdminID:   input.TargetAdminID,
		Action:          AuthzAuditActionRolesUpdated,
		RequestID:       input.RequestID,
		Detail:          datatypes.JSON(detail),
		CreatedAt:       time.Now(),
	})
}

// List 查询审计记录
func (s *AuthzAuditService) List(filter repository.AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuthzAuditLog{}, 0, nil
	}
	return s.repo.List(filter)
}

func nonNilRoles(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}

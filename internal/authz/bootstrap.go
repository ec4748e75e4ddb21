package authz

import "fmt"

// 预置角色
const (
	RoleReadonlyAuditor = "readonly_auditor"
	RoleSalesManager    = "sales_manager"
	RoleFinance         = "finance"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleReadonlyAuditor,
			Policies: []Policy{
				{Object: "/admin/finance/*", Action: "GET"},
			},
		},
		{
			Role:     RoleSalesManager,
			Inherits: []string{RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/finance/contracts", Action: "POST"},
				{Object: "/admin/finance/contracts/:id/void", Action: "POST"},
				{Object: "/admin/finance/commission-adjustments", Action: "POST"},
			},
		},
		{
			Role:     RoleFinance,
			Inherits: []string{RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/finance/contracts", Action: "POST"},
				{Object: "/admin/finance/receipts", Action: "POST"},
				{Object: "/admin/finance/receipts/:id/files", Action: "POST"},
				{Object: "/admin/finance/prepay/apply", Action: "POST"},
				{Object: "/admin/finance/prepay/adjust", Action: "POST"},
				{Object: "/admin/finance/installments/refresh-overdue", Action: "POST"},
				{Object: "/admin/finance/currencies/:code", Action: "PUT"},
				{Object: "/admin/finance/commission-rules", Action: "*"},
				{Object: "/admin/finance/commission-rules/:id", Action: "*"},
				{Object: "/admin/finance/commission-rules/:id/activate", Action: "POST"},
				{Object: "/admin/finance/commission-rules/:id/deactivate", Action: "POST"},
				{Object: "/admin/finance/commission-adjustments", Action: "POST"},
				{Object: "/admin/finance/salaries/:user_id/:month", Action: "PUT"},
				{Object: "/admin/finance/salaries/:user_id/:month/sync", Action: "POST"},
			},
		},
	}
}

func builtinRoleSet() map[string]struct{} {
	seeds := BuiltinRoleSeeds()
	set := make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		if role, err := NormalizeRole(seed.Role); err == nil {
			set[role] = struct{}{}
		}
	}
	return set
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，重复执行无副作用
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return fmt.Errorf("check builtin role failed: %w", err)
		}
		if !exists {
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor); err != nil {
				return fmt.Errorf("create builtin role failed: %w", err)
			}
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}

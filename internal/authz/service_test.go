package authz

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return svc
}

func TestBootstrapBuiltinRolesIsIdempotent(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	want := []string{"role:finance", "role:readonly_auditor", "role:sales_manager"}
	if strings.Join(roles, ",") != strings.Join(want, ",") {
		t.Fatalf("roles want %v, got %v", want, roles)
	}
}

func TestEnforceFinanceRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.SetAdminRoles(1, []string{"readonly_auditor"}); err != nil {
		t.Fatalf("set auditor failed: %v", err)
	}
	if _, err := svc.SetAdminRoles(2, []string{"sales_manager"}); err != nil {
		t.Fatalf("set sales manager failed: %v", err)
	}
	if _, err := svc.SetAdminRoles(3, []string{"finance"}); err != nil {
		t.Fatalf("set finance failed: %v", err)
	}

	cases := []struct {
		adminID uint
		obj     string
		act     string
		want    bool
	}{
		{adminID: 1, obj: "/api/v1/admin/finance/contracts/42", act: "get", want: true},
		{adminID: 1, obj: "/api/v1/admin/finance/receipts", act: "POST", want: false},
		{adminID: 2, obj: "/api/v1/admin/finance/contracts", act: "POST", want: true},
		{adminID: 2, obj: "/api/v1/admin/finance/contracts/:id/void", act: "POST", want: true},
		{adminID: 2, obj: "/api/v1/admin/finance/receipts", act: "POST", want: false},
		{adminID: 2, obj: "/api/v1/admin/finance/commissions", act: "GET", want: true},
		{adminID: 3, obj: "/api/v1/admin/finance/receipts", act: "POST", want: true},
		{adminID: 3, obj: "/api/v1/admin/finance/prepay/apply", act: "POST", want: true},
		{adminID: 3, obj: "/api/v1/admin/finance/commission-rules/:id", act: "PUT", want: true},
		{adminID: 3, obj: "/api/v1/admin/finance/contracts/:id/void", act: "POST", want: false},
		{adminID: 4, obj: "/api/v1/admin/finance/contracts", act: "GET", want: false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceAdmin(tc.adminID, tc.obj, tc.act)
		if err != nil {
			t.Fatalf("enforce %d %s %s failed: %v", tc.adminID, tc.act, tc.obj, err)
		}
		if allow != tc.want {
			t.Fatalf("enforce %d %s %s want %v got %v", tc.adminID, tc.act, tc.obj, tc.want, allow)
		}
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.SetAdminRoles(2, []string{"sales_manager"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.SetAdminRoles(2, []string{"finance", "role:finance"})
	if err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:finance" {
		t.Fatalf("roles want [role:finance], got=%v", roles)
	}
	stored, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(stored) != 1 || stored[0] != "role:finance" {
		t.Fatalf("stored roles want [role:finance], got=%v", stored)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/finance/contracts/:id/void", "POST")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	policies, err := svc.GetAdminPolicies(2)
	if err != nil {
		t.Fatalf("get admin policies failed: %v", err)
	}
	var inherited bool
	for _, p := range policies {
		if p.Subject == "role:readonly_auditor" && p.Object == "/admin/finance/*" && p.Action == "GET" {
			inherited = true
		}
	}
	if !inherited {
		t.Fatalf("expected inherited auditor policy in %v", policies)
	}
}

func TestSetAdminRolesRejectsUnknownRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.SetAdminRoles(5, []string{"finance"}); err != nil {
		t.Fatalf("set role failed: %v", err)
	}
	_, err := svc.SetAdminRoles(5, []string{"finance", "superhero"})
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	roles, err := svc.GetAdminRoles(5)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:finance" {
		t.Fatalf("rejected update should keep roles, got=%v", roles)
	}
	if _, err := svc.SetAdminRoles(0, nil); err == nil {
		t.Fatalf("expected error for admin id 0")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/finance/contracts/:id", want: "/admin/finance/contracts/:id"},
		{in: "/admin/finance/contracts/:id", want: "/admin/finance/contracts/:id"},
		{in: "admin/finance/receipts", want: "/admin/finance/receipts"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestNormalizeRole(t *testing.T) {
	if got, err := NormalizeRole(" sales manager "); err != nil || got != "role:sales_manager" {
		t.Fatalf("normalize role got %q err %v", got, err)
	}
	if _, err := NormalizeRole("role:"); err == nil {
		t.Fatalf("expected error for empty role")
	}
	if _, err := NormalizeRole("__anchor__"); err == nil {
		t.Fatalf("expected error for reserved anchor role")
	}
}

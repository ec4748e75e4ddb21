package main

import (
	"context"
	"os"

	"github.com/lingxi-works/fincore/internal/authz"
	"github.com/lingxi-works/fincore/internal/config"
	"github.com/lingxi-works/fincore/internal/constants"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.LogLevel, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 币种与汇率（1 CNY 可兑换的数量）
	rate := func(v string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
	}
	currencies := []models.Currency{
		{Code: constants.CurrencyCNY, Name: "人民币", Symbol: "¥", FixedRate: rate("1"), FloatingRate: rate("1"), IsBase: true, SortOrder: 1},
		{Code: constants.CurrencyTWD, Name: "新台币", Symbol: "NT$", FixedRate: rate("4.5"), FloatingRate: rate("4.43"), SortOrder: 2},
		{Code: constants.CurrencyUSD, Name: "美元", Symbol: "$", FixedRate: rate("0.14"), FloatingRate: rate("0.139"), SortOrder: 3},
		{Code: constants.CurrencyGBP, Name: "英镑", Symbol: "£", FixedRate: rate("0.11"), FloatingRate: rate("0.109"), SortOrder: 4},
		{Code: constants.CurrencySGD, Name: "新加坡元", Symbol: "S$", FixedRate: rate("0.19"), FloatingRate: rate("0.187"), SortOrder: 5},
		{Code: constants.CurrencyHKD, Name: "港币", Symbol: "HK$", FixedRate: rate("1.09"), FloatingRate: rate("1.085"), SortOrder: 6},
		{Code: constants.CurrencyEUR, Name: "欧元", Symbol: "€", FixedRate: rate("0.13"), FloatingRate: rate("0.128"), SortOrder: 7},
		{Code: constants.CurrencyJPY, Name: "日元", Symbol: "¥", FixedRate: rate("21"), FloatingRate: rate("20.6"), SortOrder: 8},
	}
	for _, cur := range currencies {
		var existing models.Currency
		if err := models.DB.Where("code = ?", cur.Code).First(&existing).Error; err != nil {
			cur.Status = "active"
			if err := models.DB.Create(&cur).Error; err != nil {
				stdLog.Printf("Failed to create currency %s: %v", cur.Code, err)
			} else {
				stdLog.Printf("Created currency: %s", cur.Code)
			}
		} else {
			stdLog.Printf("Currency already exists: %s", cur.Code)
		}
	}

	// 部门
	departmentNames := []string{"销售一部", "销售二部", "财务部"}
	departmentIDs := map[string]uint{}
	for _, name := range departmentNames {
		var dept models.Department
		if err := models.DB.Where("name = ?", name).First(&dept).Error; err != nil {
			dept = models.Department{Name: name}
			if err := models.DB.Create(&dept).Error; err != nil {
				stdLog.Printf("Failed to create department %s: %v", name, err)
				continue
			}
			stdLog.Printf("Created department: %s", name)
		}
		departmentIDs[name] = dept.ID
	}

	// 员工
	staff := []struct {
		Name       string
		Email      string
		Department string
	}{
		{Name: "王晓明", Email: "xiaoming.wang@example.com", Department: "销售一部"},
		{Name: "陈雅婷", Email: "yating.chen@example.com", Department: "销售一部"},
		{Name: "林志豪", Email: "zhihao.lin@example.com", Department: "销售二部"},
		{Name: "赵会计", Email: "accounting@example.com", Department: "财务部"},
	}
	userIDs := map[string]uint{}
	for _, item := range staff {
		var user models.User
		if err := models.DB.Where("email = ?", item.Email).First(&user).Error; err != nil {
			user = models.User{Name: item.Name, Email: item.Email, Status: constants.StaffStatusActive}
			if id, ok := departmentIDs[item.Department]; ok {
				user.DepartmentID = &id
			}
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", item.Email, err)
				continue
			}
			stdLog.Printf("Created user: %s", item.Email)
		}
		userIDs[item.Email] = user.ID
	}

	// 示例客户
	customers := []struct {
		Name  string
		Owner string
	}{
		{Name: "远航贸易有限公司", Owner: "xiaoming.wang@example.com"},
		{Name: "青禾教育科技", Owner: "yating.chen@example.com"},
		{Name: "北辰物流", Owner: "zhihao.lin@example.com"},
	}
	for _, item := range customers {
		var existing models.Customer
		if err := models.DB.Where("name = ?", item.Name).First(&existing).Error; err == nil {
			stdLog.Printf("Customer already exists: %s", item.Name)
			continue
		}
		customer := models.Customer{Name: item.Name}
		if id, ok := userIDs[item.Owner]; ok {
			customer.OwnerUserID = &id
		}
		if err := models.DB.Create(&customer).Error; err != nil {
			stdLog.Printf("Failed to create customer %s: %v", item.Name, err)
		} else {
			stdLog.Printf("Created customer: %s", item.Name)
		}
	}

	// 默认阶梯提成规则
	ruleService := service.NewCommissionRuleService(
		repository.NewCommissionRuleRepository(models.DB),
		repository.NewUserRepository(models.DB),
	)
	ctx := context.Background()
	var ruleCount int64
	if err := models.DB.Model(&models.CommissionRule{}).Count(&ruleCount).Error; err != nil {
		stdLog.Fatalf("Failed to count commission rules: %v", err)
	}
	if ruleCount == 0 {
		money := func(v string) models.Money {
			return models.NewMoneyFromDecimal(decimal.RequireFromString(v))
		}
		upper := func(v string) decimal.NullDecimal {
			return decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
		}
		rule, err := ruleService.SaveRule(ctx, service.SaveRuleInput{
			Name:     "销售阶梯提成",
			RuleType: constants.CommissionRuleTier,
			Currency: constants.CurrencyCNY,
			Tiers: []service.TierInput{
				{From: money("0"), To: upper("100000"), Rate: decimal.RequireFromString("0.03"), SortOrder: 1},
				{From: money("100000"), To: upper("300000"), Rate: decimal.RequireFromString("0.05"), SortOrder: 2},
				{From: money("300000"), Rate: decimal.RequireFromString("0.08"), SortOrder: 3},
			},
		})
		if err != nil {
			stdLog.Fatalf("Failed to create commission rule: %v", err)
		}
		if _, err := ruleService.SetRuleActive(ctx, rule.ID, true, 0); err != nil {
			stdLog.Fatalf("Failed to activate commission rule: %v", err)
		}
		stdLog.Printf("Created commission rule: %s", rule.Name)
	} else {
		stdLog.Printf("Commission rules already exist: %d", ruleCount)
	}

	// 管理员
	if err := models.InitDefaultAdmin(os.Getenv("FIN_DEFAULT_ADMIN_USERNAME"), os.Getenv("FIN_DEFAULT_ADMIN_PASSWORD")); err != nil {
		stdLog.Fatalf("Failed to init default admin: %v", err)
	}

	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("Failed to bootstrap roles: %v", err)
	}

	operators := []struct {
		Username string
		Email    string
		Role     string
	}{
		{Username: "finance", Email: "accounting@example.com", Role: authz.RoleFinance},
		{Username: "sales_lead", Email: "xiaoming.wang@example.com", Role: authz.RoleSalesManager},
		{Username: "auditor", Role: authz.RoleReadonlyAuditor},
	}
	password := os.Getenv("FIN_SEED_OPERATOR_PASSWORD")
	if password == "" {
		password = "operator123"
	}
	for _, item := range operators {
		var admin models.Admin
		if err := models.DB.Where("username = ?", item.Username).First(&admin).Error; err != nil {
			hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if hashErr != nil {
				stdLog.Fatalf("Failed to hash operator password: %v", hashErr)
			}
			admin = models.Admin{Username: item.Username, PasswordHash: string(hash)}
			if id, ok := userIDs[item.Email]; ok {
				admin.UserID = &id
			}
			if err := models.DB.Create(&admin).Error; err != nil {
				stdLog.Printf("Failed to create operator %s: %v", item.Username, err)
				continue
			}
			stdLog.Printf("Created operator: %s", item.Username)
		}
		if _, err := authzService.SetAdminRoles(admin.ID, []string{item.Role}); err != nil {
			stdLog.Printf("Failed to assign role %s to %s: %v", item.Role, item.Username, err)
		}
	}

	stdLog.Printf("Seed completed")
}

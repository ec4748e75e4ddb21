package router

import (
	"sort"
	"strings"
	"time"

	"github.com/lingxi-works/fincore/internal/authz"
	"github.com/lingxi-works/fincore/internal/cache"
	"github.com/lingxi-works/fincore/internal/config"
	adminhandlers "github.com/lingxi-works/fincore/internal/http/handlers/admin"
	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	adminLoginRule := RateLimitRule{
		Prefix:        cache.BuildKey("rate:admin_login"),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts, retry in %d seconds",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(RequestTimeoutMiddleware(time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	admin := apiV1.Group("/admin")
	{
		// 登录接口（无需鉴权）
		admin.POST("/login", RateLimitMiddleware(cache.Client(), adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)
		admin.GET("/captcha/image", adminHandler.GetImageCaptcha)

		// 仅需登录的接口
		session := admin.Group("")
		session.Use(JWTAuthMiddleware(c.AuthService))
		{
			session.GET("/me", adminHandler.GetAdminMe)
			session.PUT("/password", adminHandler.UpdateAdminPassword)
			session.GET("/authz/me", adminHandler.GetAuthzMe)
		}

		// 需要鉴权的接口
		authorized := admin.Group("")
		authorized.Use(JWTAuthMiddleware(c.AuthService), AdminRBACMiddleware(c.AuthzService))

		finance := authorized.Group("/finance")
		{
			// 币种与汇率
			finance.GET("/currencies", adminHandler.GetCurrencies)
			finance.PUT("/currencies/:code", adminHandler.UpdateCurrencyRate)
			finance.GET("/exchange-rate-history", adminHandler.GetExchangeRateHistory)

			// 客户与预收
			finance.GET("/customers", adminHandler.GetCustomers)
			finance.GET("/customers/:id/prepay", adminHandler.GetCustomerPrepay)
			finance.POST("/prepay/apply", adminHandler.ApplyPrepay)
			finance.POST("/prepay/adjust", adminHandler.AdjustPrepay)

			// 合同与分期
			finance.GET("/contracts", adminHandler.GetContracts)
			finance.POST("/contracts", adminHandler.CreateContract)
			finance.GET("/contracts/:id", adminHandler.GetContract)
			finance.POST("/contracts/:id/void", adminHandler.VoidContract)
			finance.GET("/installments", adminHandler.GetInstallments)
			finance.POST("/installments/refresh-overdue", adminHandler.RefreshOverdue)

			// 收款
			finance.GET("/receipts", adminHandler.GetReceipts)
			finance.POST("/receipts", adminHandler.CreateReceipt)
			finance.GET("/receipts/:id", adminHandler.GetReceipt)
			finance.POST("/receipts/:id/files", adminHandler.AttachReceiptFile)

			// 提成
			finance.GET("/commission-rules", adminHandler.GetCommissionRules)
			finance.POST("/commission-rules", adminHandler.CreateCommissionRule)
			finance.GET("/commission-rules/:id", adminHandler.GetCommissionRule)
			finance.PUT("/commission-rules/:id", adminHandler.UpdateCommissionRule)
			finance.POST("/commission-rules/:id/activate", adminHandler.ActivateCommissionRule)
			finance.POST("/commission-rules/:id/deactivate", adminHandler.DeactivateCommissionRule)
			finance.GET("/commissions", adminHandler.GetCommission)
			finance.POST("/commission-adjustments", adminHandler.CreateCommissionAdjustment)

			// 薪资
			finance.GET("/salaries", adminHandler.GetSalaries)
			finance.GET("/salaries/:user_id/:month", adminHandler.GetSalary)
			finance.PUT("/salaries/:user_id/:month", adminHandler.UpdateSalary)
			finance.POST("/salaries/:user_id/:month/sync", adminHandler.SyncSalary)
		}

		// 权限管理
		authzGroup := authorized.Group("/authz")
		{
			authzGroup.GET("/roles", adminHandler.ListAuthzRoles)
			authzGroup.GET("/admins", adminHandler.ListAuthzAdmins)
			authzGroup.GET("/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
			authzGroup.PUT("/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
			authzGroup.GET("/audit-logs", adminHandler.ListAuthzAuditLogs)
			authzGroup.GET("/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" || item.Path == "/api/v1/admin/captcha/image" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "finance" && len(segments) > 2 {
		return segments[2]
	}
	return segments[1]
}

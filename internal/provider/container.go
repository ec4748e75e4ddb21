package provider

import (
	"errors"
	"time"

	"github.com/lingxi-works/fincore/internal/authz"
	"github.com/lingxi-works/fincore/internal/cache"
	"github.com/lingxi-works/fincore/internal/config"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/queue"
	"github.com/lingxi-works/fincore/internal/repository"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/shopspring/decimal"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo          repository.AdminRepository
	UserRepo           repository.UserRepository
	CustomerRepo       repository.CustomerRepository
	ContractRepo       repository.ContractRepository
	InstallmentRepo    repository.InstallmentRepository
	ReceiptRepo        repository.ReceiptRepository
	PrepayRepo         repository.PrepayRepository
	CommissionRuleRepo repository.CommissionRuleRepository
	SalaryRepo         repository.SalaryRepository
	CurrencyRepo       repository.CurrencyRepository
	AuthzAuditLogRepo  repository.AuthzAuditLogRepository

	// Services
	AuthzService          *authz.Service
	AuthzAuditService     *service.AuthzAuditService
	AuthService           *service.AuthService
	CaptchaService        *service.CaptchaService
	CurrencyService       *service.CurrencyService
	CommissionService     *service.CommissionService
	CommissionRuleService *service.CommissionRuleService
	ContractService       *service.ContractService
	ReceiptService        *service.ReceiptService
	PrepayService         *service.PrepayService
	SalaryService         *service.SalaryService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	if err := service.InitReceiptNumbering(cfg.Snowflake.Node); err != nil {
		logger.Errorw("provider_init_receipt_numbering_failed", "node", cfg.Snowflake.Node, "error", err)
		panic(err)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

// Close 释放队列客户端与缓存连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.ContractRepo = repository.NewContractRepository(db)
	c.InstallmentRepo = repository.NewInstallmentRepository(db)
	c.ReceiptRepo = repository.NewReceiptRepository(db)
	c.PrepayRepo = repository.NewPrepayRepository(db)
	c.CommissionRuleRepo = repository.NewCommissionRuleRepository(db)
	c.SalaryRepo = repository.NewSalaryRepository(db)
	c.CurrencyRepo = repository.NewCurrencyRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)

	options := FinanceOptionsFromConfig(c.Config.Finance)
	cacheTTL := time.Duration(c.Config.Finance.CurrencyCacheSeconds) * time.Second

	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.CurrencyService = service.NewCurrencyService(c.CurrencyRepo, c.Config.Finance.HomeCurrency, cacheTTL)
	c.CommissionRuleService = service.NewCommissionRuleService(c.CommissionRuleRepo, c.UserRepo)
	c.CommissionService = service.NewCommissionService(c.CommissionRuleRepo, c.ContractRepo, c.ReceiptRepo, c.UserRepo, c.CurrencyService)
	c.ContractService = service.NewContractService(c.ContractRepo, c.InstallmentRepo, c.CustomerRepo, c.UserRepo, c.CommissionService, options)
	c.ReceiptService = service.NewReceiptService(c.ReceiptRepo, c.InstallmentRepo, c.ContractRepo, c.CustomerRepo, c.PrepayRepo, c.CurrencyService, c.QueueClient, options)
	c.PrepayService = service.NewPrepayService(c.PrepayRepo, c.CustomerRepo, c.ReceiptService, options)
	c.SalaryService = service.NewSalaryService(c.SalaryRepo, c.UserRepo, c.CommissionService, c.CurrencyService)
}

// FinanceOptionsFromConfig 将配置转换为财务服务运行参数
func FinanceOptionsFromConfig(cfg config.FinanceConfig) service.FinanceOptions {
	return service.FinanceOptions{
		DefaultReceiptCurrency: cfg.DefaultReceiptCurrency,
		AmountTolerance:        decimal.NewFromFloat(cfg.AmountTolerance),
		SalarySyncOnReceipt:    cfg.SalarySyncOnReceipt,
	}
}

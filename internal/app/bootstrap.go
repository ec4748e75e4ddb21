package app

import (
	"errors"
	"fmt"

	"github.com/lingxi-works/fincore/internal/config"
	"github.com/lingxi-works/fincore/internal/provider"
	"github.com/lingxi-works/fincore/internal/router"
	"github.com/lingxi-works/fincore/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	if !ValidMode(mode) {
		return nil, nil, fmt.Errorf("unknown mode %q", mode)
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	// 初始化 Worker 服务
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer, cfg.Finance.OverdueRefreshMinutes)
		if err != nil {
			_ = container.Close()
			return nil, nil, err
		}
		services = append(services, workerService)
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	config.Watch(func(next *config.Config) {
		if container.CaptchaService != nil {
			container.CaptchaService.SetConfig(next.Captcha)
		}
	})

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}

package service

import (
	"strings"
	"sync"
	"time"

	"github.com/lingxi-works/fincore/internal/config"

	"github.com/mojocn/base64Captcha"
)

const captchaCharset = "0123456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaService 后台登录图片验证码
type CaptchaService struct {
	mu    sync.RWMutex
	cfg   config.CaptchaConfig
	store base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	s := &CaptchaService{}
	s.SetConfig(cfg)
	return s
}

// SetConfig 更新配置并重建存储（配置热更新时调用）
func (s *CaptchaService) SetConfig(cfg config.CaptchaConfig) {
	cfg = normalizeCaptchaConfig(cfg)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil || s.cfg.MaxStore != cfg.MaxStore || s.cfg.ExpireSeconds != cfg.ExpireSeconds {
		s.store = base64Captcha.NewMemoryStore(cfg.MaxStore, time.Duration(cfg.ExpireSeconds)*time.Second)
	}
	s.cfg = cfg
}

// Enabled 是否开启登录验证码
func (s *CaptchaService) Enabled() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Enabled
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	s.mu.RLock()
	cfg, store := s.cfg, s.store
	s.mu.RUnlock()

	driver := base64Captcha.NewDriverString(
		cfg.Height,
		cfg.Width,
		cfg.NoiseCount,
		cfg.ShowLine,
		cfg.Length,
		captchaCharset,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	id, b64s, _, err := base64Captcha.NewCaptcha(driver, store).Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 校验验证码；未开启时直接通过
func (s *CaptchaService) Verify(payload CaptchaVerifyPayload) error {
	if !s.Enabled() {
		return nil
	}
	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if !store.Verify(captchaID, captchaCode, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func normalizeCaptchaConfig(cfg config.CaptchaConfig) config.CaptchaConfig {
	if cfg.Length < 4 || cfg.Length > 8 {
		cfg.Length = 5
	}
	if cfg.Width < 120 || cfg.Width > 480 {
		cfg.Width = 240
	}
	if cfg.Height < 40 || cfg.Height > 160 {
		cfg.Height = 80
	}
	if cfg.NoiseCount < 0 || cfg.NoiseCount > 20 {
		cfg.NoiseCount = 2
	}
	if cfg.ShowLine < 0 || cfg.ShowLine > 20 {
		cfg.ShowLine = 2
	}
	if cfg.ExpireSeconds < 30 || cfg.ExpireSeconds > 3600 {
		cfg.ExpireSeconds = 300
	}
	if cfg.MaxStore < 100 {
		cfg.MaxStore = 10240
	}
	return cfg
}

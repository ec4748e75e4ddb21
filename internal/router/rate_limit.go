package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitUnavailableMsg = "rate limit unavailable"
	defaultRateLimitedMsg   = "too many requests, retry in %d seconds"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string // 支持一个 %d 占位（剩余等待秒数）
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(raw string) string {
	if r.Prefix == "" {
		return raw
	}
	return r.Prefix + ":" + raw
}

func (r RateLimitRule) rejectMessage(waitSeconds int) string {
	format := strings.TrimSpace(r.Message)
	if format == "" {
		format = defaultRateLimitedMsg
	}
	return fmt.Sprintf(format, waitSeconds)
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// hitWindow 计数并返回当前窗口内次数与剩余秒数
func hitWindow(ctx context.Context, client *redis.Client, key string, windowSeconds int) (int64, int, error) {
	values, err := fixedWindowScript.Run(ctx, client, []string{key}, windowSeconds).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return 0, 0, fmt.Errorf("rate limit script returned %d values", len(values))
	}
	ttl := int(values[1])
	if ttl < 1 {
		ttl = windowSeconds
	}
	return values[0], ttl, nil
}

// RateLimitMiddleware Redis 固定窗口限流，Redis 不可用时拒绝请求
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		raw := ""
		if keyFunc != nil {
			raw = strings.TrimSpace(keyFunc(c))
		}
		if raw == "" {
			raw = c.ClientIP()
		}

		count, waitSeconds, err := hitWindow(c.Request.Context(), client, rule.key(raw), rule.WindowSeconds)
		if err != nil {
			logger.Warnw("rate_limit_script_failed", "prefix", rule.Prefix, "error", err)
			abortWith(c, response.CodeInternal, rateLimitUnavailableMsg)
			return
		}
		if count > int64(rule.MaxRequests) {
			logger.Warnw("rate_limit_rejected", "prefix", rule.Prefix, "key", raw, "count", count)
			c.Header("Retry-After", strconv.Itoa(waitSeconds))
			abortWith(c, response.CodeTooManyRequests, rule.rejectMessage(waitSeconds))
			return
		}

		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 JSON 字段（小写）+ IP 作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// readJSONField 读取请求体中的字符串字段，并还原请求体供后续绑定
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

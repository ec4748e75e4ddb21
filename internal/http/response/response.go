package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextKeyRequestID 请求 ID 在 gin 上下文中的键
const ContextKeyRequestID = "request_id"

// Response 统一响应结构，业务错误同样以 HTTP 200 返回
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// NewPagination 按总数计算页数
func NewPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

// RequestID 读取当前请求 ID
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(ContextKeyRequestID)
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	write(c, CodeOK, "", data, nil)
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	write(c, CodeOK, "", data, &pagination)
}

// Error 错误响应
func Error(c *gin.Context, statusCode int, msg string) {
	write(c, statusCode, msg, withRequestID(c, nil), nil)
}

// ErrorWithData 错误响应（带数据）
func ErrorWithData(c *gin.Context, statusCode int, msg string, data gin.H) {
	write(c, statusCode, msg, withRequestID(c, data), nil)
}

func write(c *gin.Context, code int, msg string, data interface{}, pagination *Pagination) {
	if msg == "" {
		msg = MessageOf(code)
	}
	c.JSON(http.StatusOK, Response{
		StatusCode: code,
		Msg:        msg,
		Data:       data,
		Pagination: pagination,
	})
}

func withRequestID(c *gin.Context, data gin.H) interface{} {
	requestID := RequestID(c)
	if requestID == "" {
		if data == nil {
			return nil
		}
		return data
	}
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data[ContextKeyRequestID]; !ok {
		data[ContextKeyRequestID] = requestID
	}
	return data
}

package response

import "github.com/gin-gonic/gin"

// AppError 服务层错误映射后的响应描述
type AppError struct {
	Code    int
	Message string
	Field   string // 校验失败的字段
	Type    string // 稳定的错误类型标识
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Payload 错误响应的 data 部分
func (e *AppError) Payload() gin.H {
	data := gin.H{}
	if e.Type != "" {
		data["error"] = e.Type
	}
	if e.Field != "" {
		data["field"] = e.Field
	}
	return data
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	if message == "" {
		message = MessageOf(code)
	}
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

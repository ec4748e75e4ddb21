package response

const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeTooManyRequests = 429
	CodeInternal        = 500
)

var defaultMessages = map[int]string{
	CodeOK:              "success",
	CodeBadRequest:      "bad request",
	CodeUnauthorized:    "unauthorized",
	CodeForbidden:       "forbidden",
	CodeNotFound:        "not found",
	CodeConflict:        "conflict",
	CodeTooManyRequests: "too many requests",
	CodeInternal:        "internal error",
}

// MessageOf 业务码的默认提示
func MessageOf(code int) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return "error"
}

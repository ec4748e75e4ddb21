package shared

import (
	"errors"

	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/logger"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := response.RequestID(c); id != "" {
		return logger.SW(response.ContextKeyRequestID, id)
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// 服务层错误类型标识，随错误响应的 data.error 返回
const (
	ErrorTypeValidation          = "validation_error"
	ErrorTypeScheduleMismatch    = "schedule_mismatch"
	ErrorTypeInsufficientPrepay  = "insufficient_prepay_balance"
	ErrorTypeOwnershipMismatch   = "ownership_mismatch"
	ErrorTypeContractHasPayments = "contract_has_payments"
	ErrorTypeInvalidRequest      = "invalid_request"
	ErrorTypeNotFound            = "not_found"
	ErrorTypeConcurrencyConflict = "concurrency_conflict"
	ErrorTypeMultipleActiveRules = "multiple_active_rules"
	ErrorTypeInternal            = "internal_error"
)

// RespondServiceError 按服务层错误分类返回响应，未分类错误只记录日志不外泄细节。
func RespondServiceError(c *gin.Context, err error) {
	appErr := MapServiceError(err)
	switch appErr.Code {
	case response.CodeInternal:
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	case response.CodeConflict:
		RequestLog(c).Warnw("handler_conflict", "error", err)
	}
	response.ErrorWithData(c, appErr.Code, appErr.Message, appErr.Payload())
}

// MapServiceError 将服务层错误映射为响应码、消息与错误类型。
func MapServiceError(err error) *response.AppError {
	if err == nil {
		return nil
	}
	appErr := mapServiceError(err)
	appErr.Type = errorTypeOf(err)
	return appErr
}

func mapServiceError(err error) *response.AppError {
	if errors.Is(err, service.ErrMultipleActiveRules) {
		return response.WrapError(response.CodeConflict, err.Error(), err)
	}
	switch service.KindOf(err) {
	case service.KindInvalid:
		appErr := response.WrapError(response.CodeBadRequest, err.Error(), err)
		var validation *service.ValidationError
		if errors.As(err, &validation) {
			appErr.Field = validation.Field
		}
		return appErr
	case service.KindNotFound:
		return response.WrapError(response.CodeNotFound, err.Error(), err)
	case service.KindRetryable:
		return response.WrapError(response.CodeConflict, "concurrent modification, please retry", err)
	default:
		return response.WrapError(response.CodeInternal, "", err)
	}
}

func errorTypeOf(err error) string {
	var (
		validation   *service.ValidationError
		schedule     *service.ScheduleMismatchError
		insufficient *service.InsufficientPrepayBalanceError
		ownership    *service.OwnershipMismatchError
	)
	switch {
	case errors.Is(err, service.ErrMultipleActiveRules):
		return ErrorTypeMultipleActiveRules
	case errors.Is(err, service.ErrContractHasPayments):
		return ErrorTypeContractHasPayments
	case errors.As(err, &schedule):
		return ErrorTypeScheduleMismatch
	case errors.As(err, &insufficient):
		return ErrorTypeInsufficientPrepay
	case errors.As(err, &ownership):
		return ErrorTypeOwnershipMismatch
	case errors.As(err, &validation):
		return ErrorTypeValidation
	}
	switch service.KindOf(err) {
	case service.KindInvalid:
		return ErrorTypeInvalidRequest
	case service.KindNotFound:
		return ErrorTypeNotFound
	case service.KindRetryable:
		return ErrorTypeConcurrencyConflict
	default:
		return ErrorTypeInternal
	}
}

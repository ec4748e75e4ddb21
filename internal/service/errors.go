package service

import (
	"errors"
	"fmt"

	"github.com/lingxi-works/fincore/internal/repository"

	"github.com/shopspring/decimal"
)

// ErrorKind 错误分类，区分调用方可修正、可重试与服务端缺陷
type ErrorKind string

const (
	KindInvalid   ErrorKind = "invalid"
	KindNotFound  ErrorKind = "not_found"
	KindRetryable ErrorKind = "retryable"
	KindInternal  ErrorKind = "internal"
)

// 通用哨兵错误
var (
	ErrMultipleActiveRules = errors.New("more than one active commission rule matches")
	ErrQueueUnavailable    = errors.New("queue unavailable")
	ErrContractHasPayments = &kindedError{msg: "contract already has payments", kind: KindInvalid}
	ErrInvalidCredentials  = &kindedError{msg: "invalid username or password", kind: KindInvalid}
	ErrCaptchaRequired     = &kindedError{msg: "captcha required", kind: KindInvalid}
	ErrCaptchaInvalid      = &kindedError{msg: "captcha invalid", kind: KindInvalid}
	ErrAdminDisabled       = &kindedError{msg: "admin account disabled", kind: KindInvalid}
)

type kindedError struct {
	msg  string
	kind ErrorKind
}

func (e *kindedError) Error() string { return e.msg }

// Kind 错误分类
func (e *kindedError) Kind() ErrorKind { return e.kind }

// ValidationError 输入不合法（调用方可修正，不自动重试）
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Kind 错误分类
func (e *ValidationError) Kind() ErrorKind { return KindInvalid }

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ScheduleMismatchError 分期合计与合同净额不一致
type ScheduleMismatchError struct {
	NetAmount    decimal.Decimal
	ScheduledSum decimal.Decimal
}

func (e *ScheduleMismatchError) Error() string {
	return fmt.Sprintf("installment sum %s does not match net amount %s",
		e.ScheduledSum.StringFixed(2), e.NetAmount.StringFixed(2))
}

// Kind 错误分类
func (e *ScheduleMismatchError) Kind() ErrorKind { return KindInvalid }

// InsufficientPrepayBalanceError 预收余额不足
type InsufficientPrepayBalanceError struct {
	CustomerID uint
	Balance    decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientPrepayBalanceError) Error() string {
	return fmt.Sprintf("customer %d prepay balance %s is less than requested %s",
		e.CustomerID, e.Balance.StringFixed(2), e.Requested.StringFixed(2))
}

// Kind 错误分类
func (e *InsufficientPrepayBalanceError) Kind() ErrorKind { return KindInvalid }

// OwnershipMismatchError 跨实体引用违反 客户/合同/分期 归属关系
type OwnershipMismatchError struct {
	Entity        string
	EntityID      uint
	ExpectedOwner uint
	ActualOwner   uint
}

func (e *OwnershipMismatchError) Error() string {
	return fmt.Sprintf("%s %d belongs to customer %d, not %d",
		e.Entity, e.EntityID, e.ActualOwner, e.ExpectedOwner)
}

// Kind 错误分类
func (e *OwnershipMismatchError) Kind() ErrorKind { return KindInvalid }

// NotFoundError 引用的实体不存在
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// Kind 错误分类
func (e *NotFoundError) Kind() ErrorKind { return KindNotFound }

// ConcurrencyConflictError 锁竞争或串行化失败，可从头重试整个操作
type ConcurrencyConflictError struct {
	Op  string
	Err error
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s: concurrent modification, retry: %v", e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *ConcurrencyConflictError) Unwrap() error { return e.Err }

// Kind 错误分类
func (e *ConcurrencyConflictError) Kind() ErrorKind { return KindRetryable }

// KindOf 获取错误分类，未分类错误视为服务端缺陷
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return KindInternal
}

// IsRetryable 判断是否可整体重试
func IsRetryable(err error) bool {
	return KindOf(err) == KindRetryable
}

// wrapTxError 将事务底层错误映射为领域错误，已分类的错误原样返回
func wrapTxError(op string, err error) error {
	if err == nil {
		return nil
	}
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return err
	}
	if repository.IsConcurrencyConflict(err) {
		return &ConcurrencyConflictError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

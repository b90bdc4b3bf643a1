package service

import (
	"errors"
	"fmt"
)

// 服务层错误码，处理器据此映射HTTP响应
const (
	CodeValidation    = "validation_error"
	CodeNotFound      = "not_found"
	CodeNotEligible   = "not_eligible"
	CodeLimitExceeded = "limit_exceeded"
	CodeDependency    = "dependency_error"
)

// Error 携带错误码的服务错误
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewValidationError 输入不合法或违反任务策略
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError 引用的资源不存在
func NewNotFoundError(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewNotEligibleError 提交类型未在任务中启用
func NewNotEligibleError(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotEligible, Message: fmt.Sprintf(format, args...)}
}

// NewLimitExceededError 上传次数达到上限
func NewLimitExceededError(format string, args ...interface{}) *Error {
	return &Error{Code: CodeLimitExceeded, Message: fmt.Sprintf(format, args...)}
}

// NewDependencyError 存储或外部依赖不可用
func NewDependencyError(format string, args ...interface{}) *Error {
	return &Error{Code: CodeDependency, Message: fmt.Sprintf(format, args...)}
}

// AsError 提取服务错误，非服务错误返回 false
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode 错误是否携带指定错误码
func IsCode(err error, code string) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

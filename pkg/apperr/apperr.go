// Package apperr 定义携带 HTTP 状态码的业务错误，由统一的错误处理转换为响应
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error 业务错误
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap 附加底层错误
func (e *Error) Wrap(err error) *Error {
	return &Error{Status: e.Status, Message: e.Message, Err: err}
}

func newf(status int, format string, args ...interface{}) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(http.StatusNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(http.StatusForbidden, format, args...)
}

func BadRequest(format string, args ...interface{}) *Error {
	return newf(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newf(http.StatusUnauthorized, format, args...)
}

// Conflict 并发修改或状态已变化
func Conflict(format string, args ...interface{}) *Error {
	return newf(http.StatusConflict, format, args...)
}

// TooManyRequests 操作过于频繁
func TooManyRequests(format string, args ...interface{}) *Error {
	return newf(http.StatusTooManyRequests, format, args...)
}

// Upstream 依赖的内部服务不可用
func Upstream(err error, format string, args ...interface{}) *Error {
	e := newf(http.StatusInternalServerError, format, args...)
	e.Err = err
	return e
}

func Internal(err error, format string, args ...interface{}) *Error {
	e := newf(http.StatusInternalServerError, format, args...)
	e.Err = err
	return e
}

// StatusOf 返回错误对应的 HTTP 状态码，非业务错误一律为 500
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf 返回可以展示给调用方的错误信息
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务内部错误"
}

// Is 判断错误是否为指定状态码的业务错误
func Is(err error, status int) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Status == status
}

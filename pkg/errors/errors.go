package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// 预定义错误
var (
	ErrNotFound        = New(http.StatusNotFound, "资源不存在")
	ErrForbidden       = New(http.StatusForbidden, "禁止访问")
	ErrBadRequest      = New(http.StatusBadRequest, "请求错误")
	ErrInternalServer  = New(http.StatusInternalServerError, "服务器内部错误")
	ErrValidation      = New(http.StatusUnprocessableEntity, "验证错误")
	ErrBuiltInRole     = New(http.StatusForbidden, "内置角色不可修改")
	ErrReadOnly        = New(http.StatusForbidden, "当前为只读模式")
	ErrNoChanges       = New(http.StatusUnprocessableEntity, "没有需要保存的修改")
	ErrVersionConflict = New(http.StatusConflict, "角色已被其他会话修改，请刷新后重试")
	ErrInvalidSession  = New(http.StatusConflict, "编辑会话状态不允许该操作")
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 解包错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误，保留哨兵错误以便 errors.Is 判断
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is 检查是否为指定错误
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 类型转换错误
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetCode 获取错误码，非应用错误视为500
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// NotFound 创建未找到错误
func NotFound(resource string) *AppError {
	return Wrap(ErrNotFound, http.StatusNotFound, fmt.Sprintf("%s不存在", resource))
}

// BadRequest 创建请求错误
func BadRequest(message string) *AppError {
	return Wrap(ErrBadRequest, http.StatusBadRequest, message)
}

// Validation 创建验证错误
func Validation(message string) *AppError {
	return Wrap(ErrValidation, http.StatusUnprocessableEntity, message)
}

// Internal 创建内部错误
func Internal(err error) *AppError {
	return Wrap(err, http.StatusInternalServerError, "服务器内部错误")
}

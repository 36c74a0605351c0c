package response

import (
	"net/http"

	"github.com/goconsole/pkg/errors"
	"github.com/gofiber/fiber/v2"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// 响应码定义
const (
	CodeSuccess = 0
	CodeError   = 1
)

// MsgSuccess 成功消息
const MsgSuccess = "success"

// Success 成功响应
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(http.StatusOK).JSON(Response{
		Code:    CodeSuccess,
		Message: MsgSuccess,
		Data:    data,
	})
}

// BadRequest 请求错误
func BadRequest(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(Response{
		Code:    CodeError,
		Message: message,
	})
}

// Fail 根据错误类型返回响应，AppError 的错误码同时作为HTTP状态码
func Fail(c *fiber.Ctx, err error) error {
	code := errors.GetCode(err)
	message := errors.GetMessage(err)
	if code == http.StatusInternalServerError && message == "" {
		message = "服务器内部错误"
	}
	return c.Status(code).JSON(Response{
		Code:    code,
		Message: message,
	})
}

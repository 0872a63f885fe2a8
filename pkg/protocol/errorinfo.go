package protocol

import (
	"errors"
	"fmt"
)

// ErrorInfo 服务端返回或客户端生成的协议错误
type ErrorInfo struct {
	Code       int    `json:"code" yaml:"code"`
	StatusCode int    `json:"statusCode" yaml:"statusCode"`
	Message    string `json:"message" yaml:"message"`
}

// NewErrorInfo 创建协议错误
func NewErrorInfo(code, statusCode int, message string) *ErrorInfo {
	return &ErrorInfo{Code: code, StatusCode: statusCode, Message: message}
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s (code: %d, http status: %d)", e.Message, e.Code, e.StatusCode)
}

// AsErrorInfo 从错误链中提取 ErrorInfo，非协议错误时包装为通用错误码
func AsErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	return &ErrorInfo{Code: CodeInternal, StatusCode: 500, Message: err.Error()}
}

// 常用错误码
const (
	CodeInternal          = 50000
	CodeConnectionFailed  = 80000
	CodeConnectionClosed  = 80017
	CodeChannelOpFailed   = 90000
	CodeChannelAttachFail = 90001
)

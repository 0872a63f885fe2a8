package enum

import "fmt"

var (
	// ErrInvalidValue 输入无法转换为枚举成员时返回
	ErrInvalidValue = fmt.Errorf("invalid enum value")

	// ErrInvalidDefinition 枚举定义非法（无成员、重名等）
	ErrInvalidDefinition = fmt.Errorf("invalid enum definition")
)

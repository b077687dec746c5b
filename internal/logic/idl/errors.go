package idl

import (
	"errors"
	"fmt"

	"idl-kit-sol/internal/consts"
)

// ErrMalformed 文档结构与任一代际都不匹配（缺少代际标记或顶层不是对象）。
var ErrMalformed = errors.New("malformed idl document: neither legacy nor current generation markers present")

// VersionError metadata.spec 存在但不是受支持的版本。
type VersionError struct {
	Spec string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unrecognized idl spec version %q (supported: %s)", e.Spec, consts.SpecV010)
}

// TypeKindError 类型编码中出现未知的种类键或原语名。
type TypeKindError struct {
	Kind   string
	Legacy bool
}

func (e *TypeKindError) Error() string {
	if e.Legacy {
		return fmt.Sprintf("unknown legacy type kind %q", e.Kind)
	}
	return fmt.Sprintf("unknown type kind %q", e.Kind)
}

// ParseError 带路径的解析错误：Section[Index]（条目名）。
type ParseError struct {
	Section string
	Index   int
	Name    string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("parse %s[%d] %q: %v", e.Section, e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("parse %s[%d]: %v", e.Section, e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

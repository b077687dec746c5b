package resolver

import (
	"fmt"

	"idl-kit-sol/internal/logic/idl"
)

// RefError 文档中某一处类型引用的定位化失败。
type RefError struct {
	Path string // 点分路径，如 instructions.mint.args.stage
	Err  error
}

func (e *RefError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RefError) Unwrap() error {
	return e.Err
}

// CheckDocument 校验文档中出现的每一处类型引用：指令参数、返回值与常量
// 按严格上下文（泛型必须落定），类型定义体按声明上下文（形参可为占位）。
// 收集全部失败而非首错即止，顺序跟随文档顺序。
func CheckDocument(doc *idl.Idl) []*RefError {
	r := New(doc)
	var errs []*RefError

	for i := range doc.Instructions {
		ix := &doc.Instructions[i]
		for j := range ix.Args {
			if _, err := r.Resolve(ix.Args[j].Type); err != nil {
				errs = append(errs, &RefError{
					Path: fmt.Sprintf("instructions.%s.args.%s", ix.Name, ix.Args[j].Name),
					Err:  err,
				})
			}
		}
		if ix.Returns != nil {
			if _, err := r.Resolve(*ix.Returns); err != nil {
				errs = append(errs, &RefError{
					Path: fmt.Sprintf("instructions.%s.returns", ix.Name),
					Err:  err,
				})
			}
		}
	}

	for i := range doc.Types {
		if err := r.CheckDef(&doc.Types[i]); err != nil {
			errs = append(errs, &RefError{
				Path: fmt.Sprintf("types.%s", doc.Types[i].Name),
				Err:  err,
			})
		}
	}

	for i := range doc.Constants {
		if _, err := r.Resolve(doc.Constants[i].Type); err != nil {
			errs = append(errs, &RefError{
				Path: fmt.Sprintf("constants.%s", doc.Constants[i].Name),
				Err:  err,
			})
		}
	}
	return errs
}

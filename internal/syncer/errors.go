package syncer

import "fmt"

// Kind 标识致命错误发生的阶段。
type Kind string

const (
	KindConfig  Kind = "config"
	KindResolve Kind = "resolve"
	KindFetch   Kind = "fetch"
)

// FatalError 表示整轮同步无法继续的错误（单条写入失败不属于此类）。
type FatalError struct {
	Kind Kind
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

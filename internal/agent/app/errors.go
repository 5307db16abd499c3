package app

import (
	"errors"
	"fmt"
)

// SetupError 是循环开始前的致命错误：配置、网卡、过滤器、输出目录或总线连接。
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

func setupErr(op string, err error) error {
	return &SetupError{Op: op, Err: err}
}

// SourceError 是单次读帧失败。循环会记录后继续，除非底层已经关闭。
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("read frame: %v", e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

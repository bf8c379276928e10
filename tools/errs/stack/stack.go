package stack

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// stackError 携带调用位置的错误包装。
type stackError struct {
	err   error
	loc   string
	stack string
}

// New 包装 err 并记录 skip 层之外的调用栈。
func New(err error, skip int) error {
	if err == nil {
		return nil
	}
	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip, pcs)
	var loc string
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		line := frame.File + ":" + strconv.Itoa(frame.Line)
		if loc == "" {
			loc = line
		}
		sb.WriteString(line)
		sb.WriteString(" -> ")
		sb.WriteString(frame.Function)
		sb.WriteString("\n")
		if !more {
			break
		}
	}
	return &stackError{err: err, loc: loc, stack: sb.String()}
}

func (e *stackError) Error() string {
	return fmt.Sprintf("%s [%s]", e.err.Error(), e.loc)
}

func (e *stackError) Unwrap() error { return e.err }

// Stack 返回完整调用栈文本（调试用）。
func (e *stackError) Stack() string { return e.stack }

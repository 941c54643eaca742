package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound 查无记录（正常业务结果，不作为故障记日志）
var ErrNotFound = errors.New("not found")

// ErrStoreTimeout 存储访问超时（瞬态错误，由调用方带退避重试；引擎自身不做静默重试）
var ErrStoreTimeout = errors.New("store timeout")

// ErrDuplicateOpenAlert 同键未确认报警已存在
// 数据库唯一索引兜底并发评估：两个实例同时通过去重查询时只有一个能插入成功
var ErrDuplicateOpenAlert = errors.New("open alert already exists for key")

// FieldError 单字段校验错误
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError 输入校验错误（入库前拒绝，携带字段级信息供前端修正）
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Add 追加一个字段错误
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// HasErrors 是否存在字段错误
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// AsValidationError 判断并提取校验错误
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// ContractViolation 集成契约被破坏（编程/集成缺陷）
// 例如：对 release_eligible=false 的聚合做报警评估
// 这类错误必须大声记日志并拒绝操作，静默降级有匿名性泄露风险
type ContractViolation struct {
	Op     string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", e.Op, e.Reason)
}

// IsContractViolation 判断是否为契约错误
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}

package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sempr/runjudge/pkg/constants"
)

// JudgeResult 是一次运行的最终结果，由 supervisor 在子进程完全结束后创建。
type JudgeResult struct {
	Verdict constants.Verdict `json:"verdict"`
	// TimeUsed 是用户程序消耗的 CPU 时间（毫秒，user+sys）。
	TimeUsed uint64 `json:"time"`
	// MemoryUsed 是用户程序的峰值内存（字节）。
	MemoryUsed uint64 `json:"memory"`
}

// String 输出 "<verdict> <time> <memory>"。
func (r JudgeResult) String() string {
	return fmt.Sprintf("%s %d %d", r.Verdict, r.TimeUsed, r.MemoryUsed)
}

// ParseJudgeResult 解析 String 的输出。
func ParseJudgeResult(line string) (JudgeResult, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return JudgeResult{}, fmt.Errorf("invalid judge result %q: expected 3 fields", line)
	}
	verdict, err := constants.ParseVerdict(fields[0])
	if err != nil {
		return JudgeResult{}, err
	}
	timeUsed, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return JudgeResult{}, fmt.Errorf("invalid time %q: %w", fields[1], err)
	}
	memoryUsed, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return JudgeResult{}, fmt.Errorf("invalid memory %q: %w", fields[2], err)
	}
	return JudgeResult{Verdict: verdict, TimeUsed: timeUsed, MemoryUsed: memoryUsed}, nil
}

// LaunchError 由 child 通过 fd 3 以 JSON 形式发给 supervisor，
// 表示目标程序在 exec 之前就失败了。
type LaunchError struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

func (e LaunchError) String() string {
	return e.Step + ": " + e.Error
}

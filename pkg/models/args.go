package models

import (
	"errors"
	"fmt"
	"strconv"
)

// Usage 是五个位置参数的用法说明。
const Usage = "runjudge <program_path> <input_path> <output_path> <time_limit> <memory_limit>"

var ErrUsage = errors.New("usage: " + Usage)

// RunArgs 是一次运行的配置，构造后只读。
type RunArgs struct {
	ProgramPath string
	InputPath   string
	OutputPath  string
	TimeLimit   uint64 // CPU seconds
	MemoryLimit uint64 // bytes
}

// ParseRunArgs 解析 program input output time memory 五个位置参数。
func ParseRunArgs(args []string) (RunArgs, error) {
	if len(args) != 5 {
		return RunArgs{}, fmt.Errorf("%w: expected 5 arguments, got %d", ErrUsage, len(args))
	}
	timeLimit, err := strconv.ParseUint(args[3], 10, 64)
	if err != nil {
		return RunArgs{}, fmt.Errorf("%w: invalid time limit %q: %w", ErrUsage, args[3], err)
	}
	memoryLimit, err := strconv.ParseUint(args[4], 10, 64)
	if err != nil {
		return RunArgs{}, fmt.Errorf("%w: invalid memory limit %q: %w", ErrUsage, args[4], err)
	}
	return RunArgs{
		ProgramPath: args[0],
		InputPath:   args[1],
		OutputPath:  args[2],
		TimeLimit:   timeLimit,
		MemoryLimit: memoryLimit,
	}, nil
}

// Positional 是 ParseRunArgs 的逆操作，用于把配置传给 child 子命令。
func (a RunArgs) Positional() []string {
	return []string{
		a.ProgramPath,
		a.InputPath,
		a.OutputPath,
		strconv.FormatUint(a.TimeLimit, 10),
		strconv.FormatUint(a.MemoryLimit, 10),
	}
}

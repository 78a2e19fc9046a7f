// Package sandbox runs one untrusted program under rlimits and classifies how it ended.
//
// The supervisor re-executes the current binary as the "child" subcommand. The child
// redirects stdio, installs the limits and execve()s the target, so the pid the
// supervisor waits for is the pid of the untrusted program.
package sandbox

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sempr/runjudge/internal/config"
	"github.com/sempr/runjudge/pkg/models"
)

// ChildCommand is the hidden subcommand name of the launcher.
const ChildCommand = "child"

// statusFd 是 child 向 supervisor 报告启动失败的管道（ExtraFiles[0]）。
const statusFd = 3

// ErrUnexpectedWaitStatus wait4 报告了非终止状态（例如子进程被暂停）
var ErrUnexpectedWaitStatus = errors.New("unexpected wait status")

// ErrUnsupported 当前平台不支持
var ErrUnsupported = errors.New("sandbox: unsupported platform")

// Supervisor starts the launcher and turns its termination into a JudgeResult.
type Supervisor struct {
	// Limits are forwarded to the launcher.
	Limits config.Limits
	// Executable is the binary that implements the child subcommand.
	// Empty means os.Executable().
	Executable string
	// Debug turns on debug logging in the launcher.
	Debug  bool
	Logger *slog.Logger
}

func (s *Supervisor) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// ChildArgs builds the argv (without argv[0]) of the launcher for a run.
func (s *Supervisor) ChildArgs(args models.RunArgs) []string {
	ret := []string{
		ChildCommand,
		fmt.Sprintf("--output-limit=%d", s.Limits.OutputBytes),
		fmt.Sprintf("--open-files=%d", s.Limits.OpenFiles),
		fmt.Sprintf("--core=%s", s.Limits.Core),
	}
	if s.Debug {
		ret = append(ret, "--debug")
	}
	ret = append(ret, "--")
	return append(ret, args.Positional()...)
}

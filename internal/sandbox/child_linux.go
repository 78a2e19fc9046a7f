package sandbox

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/sempr/runjudge/internal/config"
	"github.com/sempr/runjudge/pkg/models"
	"golang.org/x/sys/unix"
)

// ChildMain runs inside the launcher process. It never returns: on success the
// process image is replaced by the target program, on failure the error is
// reported on the status pipe and the process exits with status 1.
func ChildMain(args *models.RunArgs, limits config.Limits) {
	runtime.LockOSThread()
	logger := slog.Default().With("P", "child")
	step, err := launch(args, limits, logger)
	Fail(step, err)
}

// Fail reports a launcher failure on the status pipe and exits with status 1.
func Fail(step string, err error) {
	slog.Error("launch failed", "P", "child", "step", step, "err", err)
	status := os.NewFile(uintptr(statusFd), "status")
	report := models.LaunchError{Step: step, Error: err.Error()}
	if err := json.NewEncoder(status).Encode(report); err != nil {
		slog.Error("report launch error", "P", "child", "err", err)
	}
	os.Exit(1)
}

// launch only returns on failure.
func launch(args *models.RunArgs, limits config.Limits, logger *slog.Logger) (string, error) {
	// 成功 exec 后由内核关闭，supervisor 读到 EOF
	if _, err := unix.FcntlInt(statusFd, unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		return "status-pipe", err
	}

	logger.Debug("redirect files", "stdin", args.InputPath, "stdout", args.OutputPath)
	if err := redirect(args.InputPath, os.O_RDONLY, 0); err != nil {
		return "open-input", err
	}
	if err := redirect(args.OutputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 1); err != nil {
		return "open-output", err
	}

	// files are open before RLIMIT_NOFILE goes down
	rl := newRLimits(*args, limits)
	logger.Debug("before setrlimit", "rlimits", rl.String())
	if err := rl.Apply(); err != nil {
		return "setrlimit", err
	}

	argv := []string{args.ProgramPath}
	if err := unix.Exec(args.ProgramPath, argv, os.Environ()); err != nil {
		return "exec", fmt.Errorf("exec %s: %w", args.ProgramPath, err)
	}
	return "exec", fmt.Errorf("exec %s returned", args.ProgramPath)
}

// redirect opens path and moves it onto fd.
func redirect(path string, flag int, fd int) error {
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	// Dup3 clears close-on-exec on the new descriptor
	if err := unix.Dup3(int(f.Fd()), fd, 0); err != nil {
		return fmt.Errorf("dup %s to fd %d: %w", path, fd, err)
	}
	return nil
}

package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"github.com/sempr/runjudge/pkg/models"
	"golang.org/x/sys/unix"
)

// Run starts the launcher for args, blocks until it terminates and classifies the
// outcome. An error means the supervisor itself failed; every judged outcome,
// including a target that could not be started, is returned as a JudgeResult.
func (s *Supervisor) Run(args models.RunArgs) (models.JudgeResult, error) {
	// Pdeathsig 跟随创建子进程的线程
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	logger := s.logger().With("P", "parent")

	selfPath := s.Executable
	if selfPath == "" {
		var err error
		if selfPath, err = os.Executable(); err != nil {
			return models.JudgeResult{}, fmt.Errorf("locate launcher: %w", err)
		}
	}

	statusR, statusW, err := os.Pipe()
	if err != nil {
		return models.JudgeResult{}, fmt.Errorf("create status pipe: %w", err)
	}
	defer statusR.Close()

	cmd := exec.Command(selfPath, s.ChildArgs(args)...)
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{statusW}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGKILL,
	}

	logger.Debug("start launcher", "path", selfPath, "args", cmd.Args[1:])
	err = cmd.Start()
	statusW.Close()
	if err != nil {
		return models.JudgeResult{}, fmt.Errorf("start launcher: %w", err)
	}
	defer cmd.Process.Release()
	pid := cmd.Process.Pid

	// EOF 在 exec 成功或 child 退出时到达
	launchErr, err := readLaunchStatus(statusR)
	if err != nil {
		logger.Warn("read launch status", "pid", pid, "err", err)
	}
	if launchErr != nil {
		logger.Info("target did not start", "pid", pid, "reason", launchErr.String())
	}

	var ws unix.WaitStatus
	var ru unix.Rusage
	if err := wait4(pid, &ws, &ru); err != nil {
		return models.JudgeResult{}, fmt.Errorf("wait4 %d: %w", pid, err)
	}
	logger.Debug("child state changed", "pid", pid, "ws", fmt.Sprintf("%#x", uint32(ws)), "utime", ru.Utime, "stime", ru.Stime, "maxrss_kb", ru.Maxrss)

	res := models.JudgeResult{
		TimeUsed:   cpuTimeMs(&ru),
		MemoryUsed: peakMemory(&ru),
	}
	res.Verdict, err = Classify(ws, launchErr != nil, res.MemoryUsed, args.MemoryLimit)
	if errors.Is(err, ErrUnexpectedWaitStatus) {
		killAndReap(pid)
		return models.JudgeResult{}, err
	}
	if err != nil {
		return models.JudgeResult{}, err
	}

	if ws.Signaled() {
		logger.Debug("child signaled", "pid", pid, "signal", ws.Signal().String(), "verdict", res.Verdict)
	} else {
		logger.Debug("child exited", "pid", pid, "exitCode", ws.ExitStatus(), "verdict", res.Verdict)
	}
	return res, nil
}

// readLaunchStatus returns the launch error written by the child, nil when exec succeeded.
func readLaunchStatus(r io.Reader) (*models.LaunchError, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var le models.LaunchError
	if err := json.Unmarshal(data, &le); err != nil {
		// still a failed launch, keep the raw text
		return &models.LaunchError{Step: "unknown", Error: string(data)}, fmt.Errorf("decode launch status: %w", err)
	}
	return &le, nil
}

func wait4(pid int, ws *unix.WaitStatus, ru *unix.Rusage) error {
	for {
		_, err := unix.Wait4(pid, ws, unix.WUNTRACED, ru)
		if err != unix.EINTR {
			return err
		}
	}
}

func killAndReap(pid int) {
	unix.Kill(pid, unix.SIGKILL)
	var ws unix.WaitStatus
	for {
		if _, err := unix.Wait4(pid, &ws, 0, nil); err != unix.EINTR {
			return
		}
	}
}

// cpuTimeMs is user + system CPU time in milliseconds.
func cpuTimeMs(ru *unix.Rusage) uint64 {
	return uint64(ru.Utime.Nano()+ru.Stime.Nano()) / 1e6
}

// peakMemory converts ru_maxrss (KiB on Linux) to bytes.
func peakMemory(ru *unix.Rusage) uint64 {
	return uint64(ru.Maxrss) << 10
}

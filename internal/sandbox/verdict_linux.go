package sandbox

import (
	"fmt"

	"github.com/sempr/runjudge/pkg/constants"
	"golang.org/x/sys/unix"
)

// verdictForSignal is the only place that knows which signal the kernel uses
// for which rlimit.
func verdictForSignal(sig unix.Signal) constants.Verdict {
	switch sig {
	case unix.SIGXCPU, unix.SIGKILL:
		// SIGKILL: the hard CPU limit, soft == hard here
		return constants.TimeLimitExceeded
	case unix.SIGSEGV:
		return constants.MemoryLimitExceeded
	case unix.SIGXFSZ:
		return constants.OutputLimitExceeded
	default:
		return constants.RuntimeError
	}
}

// Classify maps a terminated wait status to a verdict. launchFailed marks a
// launcher that exited before exec. The measured memory wins over the signal.
func Classify(ws unix.WaitStatus, launchFailed bool, memoryUsed, memoryLimit uint64) (constants.Verdict, error) {
	var verdict constants.Verdict
	switch {
	case ws.Exited() && launchFailed:
		verdict = constants.RuntimeError
	case ws.Exited():
		verdict = constants.Success
	case ws.Signaled():
		verdict = verdictForSignal(ws.Signal())
	default:
		return 0, fmt.Errorf("%w: 0x%x", ErrUnexpectedWaitStatus, uint32(ws))
	}

	if memoryUsed > memoryLimit {
		verdict = constants.MemoryLimitExceeded
	}
	return verdict, nil
}

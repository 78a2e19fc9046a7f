package sandbox

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/sempr/runjudge/internal/config"
	"github.com/sempr/runjudge/pkg/models"
)

const rlimInfinity = ^uint64(0)

// RLimits defines the rlimits installed by the launcher before execve
type RLimits struct {
	CPU          uint64 // in s
	AddressSpace uint64 // in bytes
	Stack        uint64 // in bytes
	FileSize     uint64 // in bytes
	OpenFile     uint64
	DisableCore  bool // core 0:0, otherwise as large as the hard limit allows
}

// RLimit is one resource limit for setrlimit
type RLimit struct {
	Res  int
	Rlim syscall.Rlimit
}

func newRLimits(args models.RunArgs, limits config.Limits) RLimits {
	return RLimits{
		CPU:          args.TimeLimit,
		AddressSpace: args.MemoryLimit,
		Stack:        args.MemoryLimit,
		FileSize:     limits.OutputBytes,
		OpenFile:     limits.OpenFiles,
		DisableCore:  limits.Core == config.CoreDisabled,
	}
}

func getRlimit(cur, max uint64) syscall.Rlimit {
	return syscall.Rlimit{Cur: cur, Max: max}
}

// PrepareRLimit returns the limits in the order they are installed.
// Every limit is always present; a zero value is applied as zero.
func (r *RLimits) PrepareRLimit() []RLimit {
	core := getRlimit(rlimInfinity, rlimInfinity)
	if r.DisableCore {
		core = getRlimit(0, 0)
	}
	return []RLimit{
		{Res: syscall.RLIMIT_CPU, Rlim: getRlimit(r.CPU, r.CPU)},
		{Res: syscall.RLIMIT_AS, Rlim: getRlimit(r.AddressSpace, r.AddressSpace)},
		{Res: syscall.RLIMIT_STACK, Rlim: getRlimit(r.Stack, r.Stack)},
		{Res: syscall.RLIMIT_FSIZE, Rlim: getRlimit(r.FileSize, r.FileSize)},
		{Res: syscall.RLIMIT_NOFILE, Rlim: getRlimit(r.OpenFile, r.OpenFile)},
		{Res: syscall.RLIMIT_CORE, Rlim: core},
	}
}

// Apply installs the limits on the calling process and stops at the first failure.
func (r *RLimits) Apply() error {
	for _, rl := range r.PrepareRLimit() {
		if err := setRLimit(rl); err != nil {
			return fmt.Errorf("setrlimit %v: %w", rl, err)
		}
	}
	return nil
}

// syscall.Setrlimit, not x/sys: it also drops the runtime's saved RLIMIT_NOFILE,
// which syscall.Exec would otherwise restore.
func setRLimit(rl RLimit) error {
	err := syscall.Setrlimit(rl.Res, &rl.Rlim)
	if rl.Res != syscall.RLIMIT_CORE || !errors.Is(err, syscall.EPERM) {
		return err
	}
	// raising the hard core limit needs CAP_SYS_RESOURCE, lift the soft limit instead
	var cur syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_CORE, &cur); err != nil {
		return err
	}
	cur.Cur = cur.Max
	return syscall.Setrlimit(syscall.RLIMIT_CORE, &cur)
}

func formatLimit(v uint64) string {
	if v == rlimInfinity {
		return "unlimited"
	}
	return humanize.IBytes(v)
}

func (r RLimit) String() string {
	switch r.Res {
	case syscall.RLIMIT_CPU:
		return fmt.Sprintf("CPU[%d s:%d s]", r.Rlim.Cur, r.Rlim.Max)
	case syscall.RLIMIT_NOFILE:
		return fmt.Sprintf("OpenFile[%d:%d]", r.Rlim.Cur, r.Rlim.Max)
	}
	t := ""
	switch r.Res {
	case syscall.RLIMIT_FSIZE:
		t = "File"
	case syscall.RLIMIT_STACK:
		t = "Stack"
	case syscall.RLIMIT_AS:
		t = "AddressSpace"
	case syscall.RLIMIT_CORE:
		t = "Core"
	default:
		t = fmt.Sprintf("Resource(%d)", r.Res)
	}
	return fmt.Sprintf("%s[%s:%s]", t, formatLimit(r.Rlim.Cur), formatLimit(r.Rlim.Max))
}

func (r RLimits) String() string {
	var sb strings.Builder
	sb.WriteString("RLimits[")
	for i, rl := range r.PrepareRLimit() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(rl.String())
	}
	sb.WriteString("]")
	return sb.String()
}

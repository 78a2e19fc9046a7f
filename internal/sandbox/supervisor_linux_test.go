package sandbox_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/sempr/runjudge/cmd"
	"github.com/sempr/runjudge/internal/config"
	"github.com/sempr/runjudge/internal/sandbox"
	"github.com/sempr/runjudge/pkg/constants"
	"github.com/sempr/runjudge/pkg/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// targetEnv makes the test binary behave as a target program after exec.
const targetEnv = "RUNJUDGE_TEST_TARGET"

// The test binary doubles as the launcher (argv[1] == "child") and as a target.
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == sandbox.ChildCommand {
		cmd.Execute()
		os.Exit(1)
	}
	switch os.Getenv(targetEnv) {
	case "":
	case "term":
		// no signal.Notify: the runtime dies from SIGTERM
		unix.Kill(os.Getpid(), unix.SIGTERM)
		select {}
	case "exit3":
		os.Exit(3)
	default:
		os.Exit(100)
	}
	os.Exit(m.Run())
}

func lookPath(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not found: %v", name, err)
	}
	return path
}

func newSupervisor() *sandbox.Supervisor {
	limits := config.Default().Limits
	// keep crashing targets from leaving core files in the package directory
	limits.Core = config.CoreDisabled
	return &sandbox.Supervisor{Limits: limits}
}

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "data.in")
	out := filepath.Join(dir, "data.out")
	require.NoError(t, os.WriteFile(in, []byte("1 2\n"), 0644))

	res, err := newSupervisor().Run(models.RunArgs{
		ProgramPath: lookPath(t, "cat"),
		InputPath:   in,
		OutputPath:  out,
		TimeLimit:   1,
		MemoryLimit: 256 << 20,
	})
	require.NoError(t, err)
	require.Equal(t, constants.Success, res.Verdict)
	require.Greater(t, res.MemoryUsed, uint64(0))
	require.LessOrEqual(t, res.MemoryUsed, uint64(256<<20))
	require.Less(t, res.TimeUsed, uint64(1000))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "1 2\n", string(data))
}

func TestRunNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	res, err := newSupervisor().Run(models.RunArgs{
		ProgramPath: lookPath(t, "false"),
		InputPath:   os.DevNull,
		OutputPath:  filepath.Join(dir, "out"),
		TimeLimit:   1,
		MemoryLimit: 256 << 20,
	})
	require.NoError(t, err)
	require.Equal(t, constants.Success, res.Verdict)
}

func TestRunTruncatesOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(out, []byte("stale content"), 0644))

	res, err := newSupervisor().Run(models.RunArgs{
		ProgramPath: lookPath(t, "true"),
		InputPath:   os.DevNull,
		OutputPath:  out,
		TimeLimit:   1,
		MemoryLimit: 256 << 20,
	})
	require.NoError(t, err)
	require.Equal(t, constants.Success, res.Verdict)
	info, err := os.Stat(out)
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestRunTimeLimitExceeded(t *testing.T) {
	if testing.Short() {
		t.Skip("burns one second of CPU")
	}
	// cat /dev/zero > /dev/null never ends; FSIZE does not apply to /dev/null
	res, err := newSupervisor().Run(models.RunArgs{
		ProgramPath: lookPath(t, "cat"),
		InputPath:   "/dev/zero",
		OutputPath:  os.DevNull,
		TimeLimit:   1,
		MemoryLimit: 256 << 20,
	})
	require.NoError(t, err)
	require.Equal(t, constants.TimeLimitExceeded, res.Verdict)
	require.GreaterOrEqual(t, res.TimeUsed, uint64(900))
}

func TestRunOutputLimitExceeded(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	res, err := newSupervisor().Run(models.RunArgs{
		ProgramPath: lookPath(t, "cat"),
		InputPath:   "/dev/zero",
		OutputPath:  out,
		TimeLimit:   5,
		MemoryLimit: 256 << 20,
	})
	require.NoError(t, err)
	require.Equal(t, constants.OutputLimitExceeded, res.Verdict)

	info, err := os.Stat(out)
	require.NoError(t, err)
	require.LessOrEqual(t, info.Size(), int64(config.DefaultOutputLimit))
}

func TestRunMemoryLimitExceeded(t *testing.T) {
	// whichever way the 1 MiB address space breaks the start, the measured peak is above it
	res, err := newSupervisor().Run(models.RunArgs{
		ProgramPath: lookPath(t, "cat"),
		InputPath:   os.DevNull,
		OutputPath:  filepath.Join(t.TempDir(), "out"),
		TimeLimit:   1,
		MemoryLimit: 1 << 20,
	})
	require.NoError(t, err)
	require.Equal(t, constants.MemoryLimitExceeded, res.Verdict)
	require.Greater(t, res.MemoryUsed, uint64(1<<20))
}

func TestRunSignaled(t *testing.T) {
	self, err := os.Executable()
	require.NoError(t, err)
	t.Setenv(targetEnv, "term")

	res, err := newSupervisor().Run(models.RunArgs{
		ProgramPath: self,
		InputPath:   os.DevNull,
		OutputPath:  filepath.Join(t.TempDir(), "out"),
		TimeLimit:   5,
		MemoryLimit: 1 << 30,
	})
	require.NoError(t, err)
	require.Equal(t, constants.RuntimeError, res.Verdict)
}

func TestRunExitCodeOfTarget(t *testing.T) {
	self, err := os.Executable()
	require.NoError(t, err)
	t.Setenv(targetEnv, "exit3")

	res, err := newSupervisor().Run(models.RunArgs{
		ProgramPath: self,
		InputPath:   os.DevNull,
		OutputPath:  filepath.Join(t.TempDir(), "out"),
		TimeLimit:   5,
		MemoryLimit: 1 << 30,
	})
	require.NoError(t, err)
	require.Equal(t, constants.Success, res.Verdict)
}

func TestRunLaunchFailures(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "data.in")
	require.NoError(t, os.WriteFile(in, nil, 0644))
	notExecutable := filepath.Join(dir, "prog")
	require.NoError(t, os.WriteFile(notExecutable, []byte("not a program"), 0644))

	tests := []struct {
		name string
		args models.RunArgs
	}{
		{
			name: "missing program",
			args: models.RunArgs{ProgramPath: filepath.Join(dir, "missing"), InputPath: in, OutputPath: filepath.Join(dir, "out1")},
		},
		{
			name: "not executable",
			args: models.RunArgs{ProgramPath: notExecutable, InputPath: in, OutputPath: filepath.Join(dir, "out2")},
		},
		{
			name: "missing input",
			args: models.RunArgs{ProgramPath: lookPath(t, "true"), InputPath: filepath.Join(dir, "missing.in"), OutputPath: filepath.Join(dir, "out3")},
		},
		{
			name: "output directory missing",
			args: models.RunArgs{ProgramPath: lookPath(t, "true"), InputPath: in, OutputPath: filepath.Join(dir, "no", "such", "out")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args.TimeLimit = 1
			tt.args.MemoryLimit = 256 << 20
			res, err := newSupervisor().Run(tt.args)
			require.NoError(t, err)
			require.Equal(t, constants.RuntimeError, res.Verdict)
		})
	}
}

func TestRunSupervisorFailure(t *testing.T) {
	sv := newSupervisor()
	sv.Executable = filepath.Join(t.TempDir(), "no-launcher")
	_, err := sv.Run(models.RunArgs{
		ProgramPath: "/bin/true",
		InputPath:   os.DevNull,
		OutputPath:  os.DevNull,
		TimeLimit:   1,
		MemoryLimit: 256 << 20,
	})
	require.Error(t, err)
}

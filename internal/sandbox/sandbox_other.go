//go:build !linux

package sandbox

import (
	"log/slog"
	"os"

	"github.com/sempr/runjudge/internal/config"
	"github.com/sempr/runjudge/pkg/models"
)

// This is the non-Linux implementation. rlimit semantics and ru_maxrss units differ,
// so nothing is run.
func (s *Supervisor) Run(args models.RunArgs) (models.JudgeResult, error) {
	return models.JudgeResult{}, ErrUnsupported
}

func ChildMain(args *models.RunArgs, limits config.Limits) {
	slog.Error("launcher is not supported on this OS")
	os.Exit(1)
}

func Fail(step string, err error) {
	slog.Error("launch failed", "step", step, "err", err)
	os.Exit(1)
}

package cmd

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// 全局 logger，只会初始化一次；stdout 留给判题结果，日志全部写 stderr
var (
	globalLogger *slog.Logger
	logLevel     = new(slog.LevelVar)
	once         sync.Once
)

// Init 初始化全局 slog Logger
// 终端下用 tint 彩色输出，systemd 下去掉时间戳，其他情况为普通文本格式
func Init() *slog.Logger {
	once.Do(func() {
		logLevel.Set(slog.LevelWarn)
		globalLogger = slog.New(newHandler(os.Stderr))
		// 设置为全局默认 logger
		slog.SetDefault(globalLogger)
	})

	return globalLogger
}

// SetLevel changes the level of the global logger.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

func newHandler(w *os.File) slog.Handler {
	if isatty.IsTerminal(w.Fd()) {
		return tint.NewHandler(w, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.TimeOnly,
		})
	}
	if isRunningUnderSystemd() {
		return newTextHandler(w, removeTimeAttr)
	}
	return newTextHandler(w, nil)
}

func newTextHandler(w io.Writer, replace func([]string, slog.Attr) slog.Attr) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       logLevel,
		ReplaceAttr: replace,
	})
}

// 判断是否在 systemd 下运行
func isRunningUnderSystemd() bool {
	_, ok := os.LookupEnv("INVOCATION_ID")
	return ok
}

// removeTimeAttr 用于删除时间字段
func removeTimeAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.Attr{} // 删除时间字段
	}
	return a
}

func init() {
	Init()
}

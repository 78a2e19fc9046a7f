/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sempr/runjudge/internal/config"
	"github.com/sempr/runjudge/internal/sandbox"
	"github.com/sempr/runjudge/pkg/models"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
	format  string

	// resultOut receives the judge result; cobra's own output goes to stderr
	resultOut io.Writer = os.Stdout
)

// rootCmd runs one program and prints "<verdict> <time> <memory>"
var rootCmd = &cobra.Command{
	Use:   "runjudge <program_path> <input_path> <output_path> <time_limit> <memory_limit>",
	Short: "Run one untrusted program under resource limits and report its verdict",
	Long: `runjudge runs <program_path> once with stdin from <input_path> and stdout to
<output_path>, limited to <time_limit> CPU seconds and <memory_limit> bytes of
address space, and prints one line:

  <verdict> <cpu-time-ms> <peak-memory-bytes>

where <verdict> is one of Success, TimeLimitExceeded, MemoryLimitExceeded,
RuntimeError and OutputLimitExceeded. The exit status is 0 whenever a verdict
was produced.`,
	Args: cobra.ExactArgs(5),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			SetLevel(slog.LevelDebug)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		runArgs, err := models.ParseRunArgs(args)
		if err != nil {
			return err
		}
		if format != "text" && format != "json" {
			return fmt.Errorf("unknown format %q", format)
		}
		// 参数合法之后的错误都是 supervisor 自身的失败
		cmd.SilenceUsage = true

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		sv := &sandbox.Supervisor{Limits: cfg.Limits, Debug: debug}
		res, err := sv.Run(runArgs)
		if err != nil {
			slog.Error("supervisor failed", "program", runArgs.ProgramPath, "err", err)
			return err
		}
		return writeResult(resultOut, res, format)
	},
}

func writeResult(w io.Writer, res models.JudgeResult, format string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(res)
	}
	_, err := fmt.Fprintln(w, res.String())
	return err
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(os.Stderr)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging on stderr")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "TOML file with launcher limits (output_bytes, open_files, core)")
	rootCmd.Flags().StringVar(&format, "format", "text", "result format: text or json")
}

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/sempr/runjudge/internal/config"
	"github.com/sempr/runjudge/internal/sandbox"
	"github.com/sempr/runjudge/pkg/models"
	"github.com/spf13/cobra"
)

var childLimits = config.Default().Limits

// childCmd is started by the supervisor, never by hand
var childCmd = &cobra.Command{
	Use:    sandbox.ChildCommand + " <program_path> <input_path> <output_path> <time_limit> <memory_limit>",
	Short:  "Install limits, redirect stdio and exec the program",
	Hidden: true,
	// 参数错误也要通过状态管道报告，否则 supervisor 会把 exit 1 当成正常退出
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(5)(cmd, args); err != nil {
			sandbox.Fail("args", err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		runArgs, err := models.ParseRunArgs(args)
		if err != nil {
			sandbox.Fail("args", err)
		}
		cfg := &config.Config{Limits: childLimits}
		if err := cfg.Validate(); err != nil {
			sandbox.Fail("args", err)
		}
		sandbox.ChildMain(&runArgs, childLimits)
	},
}

func init() {
	rootCmd.AddCommand(childCmd)
	childCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		sandbox.Fail("args", err)
		return err
	})

	childCmd.Flags().Uint64Var(&childLimits.OutputBytes, "output-limit", childLimits.OutputBytes, "RLIMIT_FSIZE in bytes")
	childCmd.Flags().Uint64Var(&childLimits.OpenFiles, "open-files", childLimits.OpenFiles, "RLIMIT_NOFILE")
	childCmd.Flags().StringVar(&childLimits.Core, "core", childLimits.Core, "core dump policy: unlimited or disabled")
}

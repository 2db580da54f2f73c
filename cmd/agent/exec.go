package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"k8s-agent/internal/command"
	"k8s-agent/internal/observability"
	"k8s-agent/internal/runner"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec -- kubectl <args>",
	Short: "Validate and run one command locally, like POST /command",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level, err := observability.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		observability.InitLogger("k8s-agent", level, os.Stderr)

		exec := runner.New(runner.Options{
			Shell:   runner.Shell{Path: cfg.Shell, Flag: "-c"},
			Timeout: cfg.ExecTimeout,
		})
		return runOnce(cmd.Context(), exec, strings.Join(args, " "), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runOnce(ctx context.Context, exec *runner.Executor, raw string, stdout io.Writer) error {
	validated, err := command.Validate(raw)
	if err != nil {
		return &exitCodeError{code: 1, err: err}
	}

	res, err := exec.Execute(ctx, validated)
	if err != nil {
		code := 1
		var execErr *runner.ExecutionError
		if errors.As(err, &execErr) && execErr.ExitCode > 0 {
			code = execErr.ExitCode
		}
		return &exitCodeError{code: code, err: err}
	}

	_, err = io.WriteString(stdout, res.Stdout)
	return err
}

package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pluginradar/radar/internal/registry"
)

const defaultCommandTimeout = 30

func executeCommandTool(deps Deps) registry.Tool {
	return registry.Tool{
		Spec: mcp.NewTool("execute_command",
			mcp.WithDescription("Execute a shell command in the project directory (for running scripts, npm commands, etc.)"),
			mcp.WithString("command", mcp.Description("Shell command to execute"), mcp.Required()),
			mcp.WithNumber("timeout", mcp.Description("Timeout in seconds"), mcp.DefaultNumber(defaultCommandTimeout)),
		),
		Handler: func(ctx context.Context, args registry.Args) registry.Result {
			command := args.String("command", "")
			if command == "" {
				return registry.Fail(registry.KindValidation, "command is required", nil)
			}

			timeout := args.Int("timeout", defaultCommandTimeout)
			if timeout <= 0 {
				timeout = defaultCommandTimeout
			}

			cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
			defer cancel()

			cmd := exec.CommandContext(cmdCtx, "bash", "-c", command)
			cmd.Dir = deps.ProjectRoot

			// Run the shell in its own process group and kill the whole
			// group on timeout: killing only the direct child leaves
			// backgrounded processes holding the output pipes, and Run
			// would block until they exit. WaitDelay abandons the pipes
			// if anything survives the group kill.
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
			cmd.Cancel = func() error {
				return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			cmd.WaitDelay = time.Second

			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			err := cmd.Run()
			if cmdCtx.Err() == context.DeadlineExceeded {
				return registry.Failf(registry.KindTimeout, nil, "command timed out after %ds", timeout)
			}

			exitCode := 0
			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					exitCode = exitErr.ExitCode()
				} else {
					return registry.Failf(registry.KindUpstream, nil, "running command: %v", err)
				}
			}

			payload := map[string]any{
				"stdout":    stdout.String(),
				"stderr":    stderr.String(),
				"exit_code": exitCode,
			}
			if exitCode != 0 {
				res := registry.Failf(registry.KindUpstream, payload, "command exited with code %d", exitCode)
				return res
			}
			return registry.Ok(payload)
		},
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"

	"github.com/go-drift/nativerender/pkg/jsbridge"
	"github.com/go-drift/nativerender/pkg/uithread"
)

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Run a render script against the headless backend",
		Long: `Run a JavaScript render script and print every root's native tree.

The script drives rendering through the nativeRender global (also
available as require('nativerender')) and may use TimerModule or
require('nativerender/timer'). Handlers set on nativeRender.onEvent,
nativeRender.onCallback and nativeRender.onSize receive outbound calls.

After the script returns, the command waits for the settle duration so
timers can fire, then waits for the UI context to go idle.

Flags:
  --config FILE      Configuration file (default: ./nativerender.yaml if present)
  --settle DURATION  Time to let timers run after the script returns (default: 100ms)`,
		Usage: "nativerender run <script.js> [--config FILE] [--settle DURATION]",
		Run:   runRun,
	})
}

type runOptions struct {
	configPath string
	settle     time.Duration
}

func runRun(args []string) error {
	files, opts, err := parseRunArgs(args)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return fmt.Errorf("exactly one script is required\n\nUsage: nativerender run <script.js>")
	}
	src, err := os.ReadFile(files[0])
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	s, err := newSession(opts.configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := require.NewRegistry()
	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(reg),
		eventloop.EnableConsole(true),
	)
	ui := uithread.NewLoop()
	ui.Start()
	defer ui.Stop()

	bridge := jsbridge.New(loop, ui, s.roots,
		jsbridge.WithLogger(s.logger),
		jsbridge.WithSurfaces(s.surface),
	)
	bridge.Register(reg)
	loop.Start()
	defer loop.Stop()

	if err := bridge.Run(ctx, bridge.Install); err != nil {
		return err
	}
	if err := bridge.RunScript(ctx, files[0], string(src)); err != nil {
		return err
	}

	select {
	case <-time.After(opts.settle):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := bridge.Settle(ctx); err != nil {
		return err
	}
	var printErr error
	if err := ui.PostSync(ctx, func() { printErr = s.printTrees(stdout) }); err != nil {
		return err
	}
	return printErr
}

func parseRunArgs(args []string) ([]string, runOptions, error) {
	opts := runOptions{settle: 100 * time.Millisecond}
	var files []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--config", "--settle":
			if !hasValue {
				if i+1 >= len(args) {
					return nil, opts, fmt.Errorf("%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			if name == "--config" {
				opts.configPath = value
				continue
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return nil, opts, fmt.Errorf("invalid --settle: %w", err)
			}
			opts.settle = d
		default:
			if strings.HasPrefix(arg, "--") {
				return nil, opts, fmt.Errorf("unknown flag %s", arg)
			}
			files = append(files, arg)
		}
	}
	return files, opts, nil
}

package cmd

import (
	"fmt"

	"github.com/go-drift/nativerender/pkg/mutation"
	"github.com/go-drift/nativerender/pkg/renderer"
)

func init() {
	RegisterCommand(&Command{
		Name:  "replay",
		Short: "Replay a recorded mutation script",
		Long: `Apply a YAML mutation script through the dispatcher and print every
root's native tree followed by the outbound calls it produced.

A script is a list of steps, each one boundary call:

  steps:
    - {op: createRoot, root: 7}
    - op: create
      root: 7
      nodes:
        - {tag: 1, parent: 0, index: 0, view: View}
    - {op: endBatch, root: 7}

Flags:
  --config FILE      Configuration file (default: ./nativerender.yaml if present)`,
		Usage: "nativerender replay <script.yaml> [--config FILE]",
		Run:   runReplay,
	})
}

func runReplay(args []string) error {
	files, opts, err := parseRunArgs(args)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return fmt.Errorf("exactly one script is required\n\nUsage: nativerender replay <script.yaml>")
	}
	script, err := mutation.LoadScript(files[0])
	if err != nil {
		return err
	}
	s, err := newSession(opts.configPath)
	if err != nil {
		return err
	}

	// Replay runs every step on this goroutine, which serves as the UI
	// context for the whole command.
	up := &renderer.Recorder{}
	r := renderer.New(s.roots, up, renderer.WithLogger(s.logger))
	if err := r.Replay(script, s.surface); err != nil {
		return err
	}
	if err := s.printTrees(stdout); err != nil {
		return err
	}
	printOutbound(up)
	return nil
}

func printOutbound(up *renderer.Recorder) {
	events, callbacks, sizes := up.Events(), up.Callbacks(), up.Sizes()
	if len(events)+len(callbacks)+len(sizes) == 0 {
		return
	}
	fmt.Fprintln(stdout, "outbound:")
	for _, ev := range events {
		fmt.Fprintf(stdout, "  event root=%d tag=%d name=%s type=%s params=%v\n", ev.RootID, ev.Tag, ev.Name, ev.Type, ev.Params)
	}
	for _, cb := range callbacks {
		fmt.Fprintf(stdout, "  callback root=%d tag=%d id=%d func=%s result=%d params=%v\n", cb.RootID, cb.Tag, cb.CallbackID, cb.FuncName, cb.Result, cb.Params)
	}
	for _, sz := range sizes {
		mode := "deferred"
		if sz.Sync {
			mode = "sync"
		}
		fmt.Fprintf(stdout, "  size root=%d tag=%d %gx%g %s\n", sz.RootID, sz.Tag, sz.Size.Width, sz.Size.Height, mode)
	}
}

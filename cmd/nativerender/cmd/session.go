package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-drift/nativerender/pkg/config"
	nrerrors "github.com/go-drift/nativerender/pkg/errors"
	"github.com/go-drift/nativerender/pkg/native"
	"github.com/go-drift/nativerender/pkg/native/headless"
	"github.com/go-drift/nativerender/pkg/rootregistry"
	"github.com/go-drift/nativerender/pkg/viewmanager"
)

// session is the headless rendering stack shared by run and replay.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	roots  *rootregistry.Registry

	mu       sync.Mutex
	surfaces map[uint32]*headless.Surface
}

// newSession loads the configuration (an explicit path, or
// nativerender.yaml in the working directory when present), installs the
// error handler, and builds a root registry over the headless backend.
// Unknown view kinds render as generic nodes.
func newSession(configPath string) (*session, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		var dir string
		if dir, err = os.Getwd(); err == nil {
			cfg, err = config.LoadOptional(dir)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := cfg.Logger(stderr)
	if cfg.Log.Verbose {
		nrerrors.SetHandler(&nrerrors.LogHandler{Out: stderr, Verbose: true})
	} else {
		nrerrors.SetHandler(nrerrors.NewSlogHandler(logger))
	}

	factories := native.NewFactoryRegistry()
	headless.Register(factories, true)

	var opts []viewmanager.Option
	if defaults := cfg.ViewDefaults(); defaults != nil {
		opts = append(opts, viewmanager.WithViewDefaults(defaults))
	}
	return &session{
		cfg:      cfg,
		logger:   logger,
		roots:    rootregistry.New(factories, logger, opts...),
		surfaces: make(map[uint32]*headless.Surface),
	}, nil
}

// surface returns a new headless surface for rootID.
func (s *session) surface(rootID uint32) native.Surface {
	surface := headless.NewSurface(fmt.Sprintf("root-%d", rootID))
	s.mu.Lock()
	s.surfaces[rootID] = surface
	s.mu.Unlock()
	return surface
}

// printTrees writes the native tree of every live root. It must run on the
// UI context.
func (s *session) printTrees(w io.Writer) error {
	ids := s.roots.IDs()
	if len(ids) == 0 {
		_, err := fmt.Fprintln(w, "(no roots)")
		return err
	}
	for _, id := range ids {
		vm := s.roots.ViewManager(id)
		attached := "detached"
		if vm.Surface() != nil {
			attached = "attached"
		}
		fmt.Fprintf(w, "root %d (%s, %d nodes)\n", id, attached, vm.Len())
		var b strings.Builder
		if err := headless.Dump(&b, vm.RootNode()); err != nil {
			return err
		}
		for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}

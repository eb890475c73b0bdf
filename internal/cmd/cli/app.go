package cli

import (
	"context"
	"fmt"

	cfgpkg "github.com/rzbill/flume/internal/config"
	"github.com/rzbill/flume/internal/queue"
	"github.com/rzbill/flume/internal/runtime"
	pebblestore "github.com/rzbill/flume/internal/storage/pebble"
	logpkg "github.com/rzbill/flume/pkg/log"
)

// App carries the global flags shared by every subcommand.
type App struct {
	DataDir    string
	Fsync      string
	ConfigPath string
	Logger     logpkg.Logger
}

// Open builds a runtime from the app's flags and configuration.
func (a *App) Open() (*runtime.Runtime, error) {
	cfg, err := cfgpkg.Load(a.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfgpkg.FromEnv(&cfg)

	mode := pebblestore.FsyncModeAlways
	switch a.Fsync {
	case "", "always":
	case "interval":
		mode = pebblestore.FsyncModeInterval
	case "never":
		mode = pebblestore.FsyncModeNever
	default:
		return nil, fmt.Errorf("invalid --fsync %q; use always|interval|never", a.Fsync)
	}

	dataDir := a.DataDir
	if dataDir == "" {
		dataDir = cfgpkg.DefaultDataDir()
	}
	return runtime.Open(runtime.Options{
		DataDir: dataDir,
		Fsync:   mode,
		Config:  cfg,
		Logger:  a.Logger,
	})
}

// openExisting resolves a queue by catalog lookup so callers need not
// repeat the mode on every command.
func (a *App) openExisting(ctx context.Context, rt *runtime.Runtime, name string) (*queue.Queue, error) {
	infos, err := rt.Queues(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Name == name {
			return rt.OpenQueue(info.Name, info.Mode)
		}
	}
	return nil, fmt.Errorf("unknown queue %q (create it with: flume queue create --name %s --mode single|broadcast)", name, name)
}

package cmd

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"os/exec"
	"runtime"

	"github.com/conneroisu/jaff/internal/build"
	"github.com/conneroisu/jaff/internal/config"
	"github.com/conneroisu/jaff/internal/eventbus"
	"github.com/conneroisu/jaff/internal/logging"
	"github.com/conneroisu/jaff/internal/resolver"
	"github.com/conneroisu/jaff/internal/watcher"
)

// site wires the components shared by the build, watch and serve commands.
type site struct {
	cfg      *config.Config
	logger   logging.Logger
	bus      *eventbus.Bus
	resolver *resolver.Resolver
	pipeline *build.Pipeline
}

func newSite(cfg *config.Config, logger logging.Logger) *site {
	bus := eventbus.New()
	res := resolver.New(cfg, logger)
	return &site{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		resolver: res,
		pipeline: build.NewPipeline(cfg, res, bus, logger),
	}
}

// buildAll copies the extra files and renders every page. A missing
// source root only skips the extras.
func (s *site) buildAll(ctx context.Context) (*build.Result, error) {
	copied, err := build.CopyExtras(s.cfg.Paths.Src, s.cfg.Paths.Dist)
	switch {
	case err == nil:
		s.logger.Debug(ctx, "Extras copied", "files", len(copied))
	case stderrors.Is(err, fs.ErrNotExist):
		logging.Notice(ctx, s.logger, s.cfg.Paths.Src)
	default:
		return nil, err
	}
	return s.pipeline.Build(ctx)
}

// watch starts a watcher that rebuilds the whole site after every batch
// of relevant changes. afterBuild, when set, runs after each rebuild.
func (s *site) watch(ctx context.Context, afterBuild func(*build.Result)) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(s.cfg.Watch.Debounce, s.logger)
	if err != nil {
		return nil, err
	}

	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.AnyOf(
		watcher.DataFilter,
		watcher.TemplateFilter(s.cfg.Templates.Extension),
		watcher.ExtrasFilter(s.cfg.Paths.Src),
	))

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		for _, e := range events {
			s.logger.Info(ctx, "File changed", "path", e.Path, "type", e.Type.String())
		}
		s.resolver.Renderer().Invalidate()
		result, err := s.buildAll(ctx)
		if err != nil {
			return err
		}
		if afterBuild != nil {
			afterBuild(result)
		}
		return nil
	})

	if err := fw.AddRecursive(s.cfg.Paths.Src); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	return fw, nil
}

// runHook runs a user command after a rebuild.
func runHook(ctx context.Context, logger logging.Logger, command string) {
	if command == "" {
		return
	}
	var c *exec.Cmd
	if runtime.GOOS == "windows" {
		c = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		c = exec.CommandContext(ctx, "sh", "-c", command)
	}
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		logger.Warn(ctx, err, "Post-build command failed", "command", command)
	}
}

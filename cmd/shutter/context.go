package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"shutter/internal/config"
	"shutter/internal/index"
	"shutter/internal/logging"
	"shutter/internal/metadata"
	"shutter/internal/services"
)

type globalFlags struct {
	config   string
	logLevel string
	silent   bool
	json     bool
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.flags != nil {
			path = strings.TrimSpace(c.flags.config)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// JSONMode reports whether --json was given.
func (c *commandContext) JSONMode() bool {
	return c.flags != nil && c.flags.json
}

// session holds everything a command run opens, released by Close in reverse
// order.
type session struct {
	cfg    *config.Config
	logs   *logging.Session
	logger *slog.Logger
	store  *index.Store
	editor *metadata.ExifTool
}

// open loads config, starts the run logger, and takes the index lock. The
// returned context carries the run ID.
func (c *commandContext) open(cmd *cobra.Command) (*session, context.Context, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logs, err := logging.Open(cfg, logging.RunOptions{
		Level:   c.flags.logLevel,
		Silent:  c.flags.silent,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	s := &session{cfg: cfg, logs: logs, logger: logs.Logger}

	store, err := index.Open(cfg, s.logger)
	if err != nil {
		logging.ErrorWithContext(s.logger, "open index failed", "index_open_failed",
			append([]logging.Attr{
				logging.String(logging.FieldErrorHint, indexHint(err)),
			}, logging.ErrorAttrs(err)...)...,
		)
		_ = logs.Close()
		return nil, nil, err
	}
	s.store = store

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithRunID(ctx, logs.RunID)
	s.logger.Debug("command started",
		logging.String("command", cmd.CommandPath()),
		logging.String("config_path", c.configPath),
		logging.Bool("config_exists", c.configExists),
		logging.String("log_path", logs.LogPath),
	)
	return s, ctx, nil
}

// Editor returns the exiftool-backed metadata editor, created on first use.
func (s *session) Editor() *metadata.ExifTool {
	if s.editor == nil {
		s.editor = metadata.NewExifTool(s.cfg.ExiftoolBinary(), s.logger)
	}
	return s.editor
}

func (s *session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.editor != nil {
		errs = append(errs, s.editor.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	errs = append(errs, s.logs.Close())
	return errors.Join(errs...)
}

func indexHint(err error) string {
	if errors.Is(err, index.ErrLocked) {
		return "another shutter command is running against this index"
	}
	if errors.Is(err, index.ErrSchemaMismatch) {
		return "the index was written by a different shutter version; move it aside and rescan"
	}
	return "check paths.index_dir permissions"
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

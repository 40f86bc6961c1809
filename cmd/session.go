package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/placeprep/placeprep/internal/config"
	"github.com/placeprep/placeprep/internal/logger"
	"github.com/placeprep/placeprep/internal/progress"
	"github.com/placeprep/placeprep/internal/store"
)

var errEphemeral = errors.New("not available with --ephemeral")

// session bundles what a command needs: config, logger, storage and the
// progress tracker. Commands open one, use it, and close it before exiting.
type session struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *store.Store // nil with --ephemeral
	kv      store.KVRepo // nil with --ephemeral
	tracker *progress.Tracker
}

// openSession loads config, builds the logger, opens the store and loads
// the tracker.
func openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	s := &session{cfg: cfg, log: log}
	opts := []progress.Option{
		progress.WithKey(cfg.Progress.Key),
		progress.WithLogger(log.Named("progress")),
	}

	if ephemeral, _ := cmd.Flags().GetBool("ephemeral"); ephemeral {
		s.tracker = progress.Open(ctx, store.NewMemoryKV(), opts...)
		return s, nil
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Debug("store opened", zap.String("path", dbPath))

	s.store = st
	s.kv = st.KVRepo(cfg.Database.KeepRevisions)
	opts = append(opts, progress.WithEventLog(st.EventRepo()))
	s.tracker = progress.Open(ctx, s.kv, opts...)
	return s, nil
}

// Close flushes the tracker and closes the store.
func (s *session) Close(ctx context.Context) error {
	err := s.tracker.Close(ctx)
	if s.store != nil {
		if cerr := s.store.Close(); err == nil {
			err = cerr
		}
	}
	_ = s.log.Sync()
	return err
}

// withSession runs fn inside an open session and reports the close error
// when fn itself succeeded.
func withSession(cmd *cobra.Command, fn func(s *session) error) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(cmd.Context()); err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

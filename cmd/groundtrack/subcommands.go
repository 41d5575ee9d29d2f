package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chocolat0w0/globe-3d-tle/internal/api"
	"github.com/chocolat0w0/globe-3d-tle/internal/catalog"
	"github.com/chocolat0w0/globe-3d-tle/internal/compute"
	"github.com/chocolat0w0/globe-3d-tle/internal/config"
	"github.com/chocolat0w0/globe-3d-tle/internal/geometry"
	"github.com/chocolat0w0/globe-3d-tle/internal/session"
	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
)

func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	bootLogger := newLogger(slog.LevelInfo)

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, bootLogger)
	if err != nil {
		return cfg, bootLogger, err
	}

	level := cfg.Level()
	if s, _ := cmd.Flags().GetString("log"); s != "" {
		if l, ok := parseLevel(s); ok {
			level = l
		} else {
			bootLogger.Warn("unknown log level, keeping configured", "value", s)
		}
	}
	return cfg, newLogger(level), nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP computation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg.CatalogPath)
			if err != nil {
				return err
			}
			defer store.Close()

			sess, err := session.New(session.Config{
				CacheCapacity: cfg.CacheCapacity,
				PoolSize:      cfg.PoolSize,
			}, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			srv := api.NewServer(cfg.HTTPAddr, sess, store, cfg.AllowedOrigins, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", cfg.HTTPAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				logger.Info("shutting down")
				shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.HTTPServer().Shutdown(shutCtx); err != nil {
					return err
				}
			}
			logger.Info("stopped")
			return nil
		},
	}
}

func newComputeCmd() *cobra.Command {
	var (
		targetID    string
		line1       string
		line2       string
		start       string
		duration    time.Duration
		stepSec     float64
		wantOrbit   bool
		wantFoot    bool
		wantSwath   bool
		crossTrack  float64
		alongTrack  float64
		minDeg      float64
		maxDeg      float64
		subdivs     int
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Run one computation and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			pair, err := tle.NewPair(line1, line2)
			if err != nil {
				return err
			}

			windowStart := time.Now().UTC().Truncate(time.Second)
			if start != "" {
				windowStart, err = time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("parse --start: %w", err)
				}
			}

			sess, err := session.New(session.Config{}, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			req := compute.Request{
				TargetID:      targetID,
				Pair:          pair,
				WindowStartMs: windowStart.UnixMilli(),
				DurationMs:    duration.Milliseconds(),
				StepSec:       stepSec,
				Outputs: compute.OutputsWanted{
					Orbit:     wantOrbit,
					Footprint: wantFoot,
					Swath:     wantSwath,
				},
			}
			ranges := []geometry.OffnadirRange{{MinDeg: minDeg, MaxDeg: maxDeg}}
			if wantFoot {
				req.FootprintParams = &geometry.FootprintParams{
					CrossTrackDeg: crossTrack,
					AlongTrackDeg: alongTrack,
					Ranges:        ranges,
					Subdivisions:  subdivs,
				}
			}
			if wantSwath {
				req.SwathParams = &geometry.SwathParams{
					Ranges:       ranges,
					Subdivisions: subdivs,
				}
			}

			done := make(chan compute.Result, 1)
			sess.Compute(req, func(r compute.Result) { done <- r })
			res := <-done
			if res.Err != nil {
				return res.Err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Response)
		},
	}

	cmd.Flags().StringVar(&targetID, "target", "cli", "target identifier used in the output")
	cmd.Flags().StringVar(&line1, "line1", "", "element set line 1")
	cmd.Flags().StringVar(&line2, "line2", "", "element set line 2")
	cmd.Flags().StringVar(&start, "start", "", "window start, RFC 3339 (default: now)")
	cmd.Flags().DurationVar(&duration, "duration", 90*time.Minute, "window duration")
	cmd.Flags().Float64Var(&stepSec, "step", 60, "sampling interval in seconds")
	cmd.Flags().BoolVar(&wantOrbit, "orbit", true, "compute orbit samples")
	cmd.Flags().BoolVar(&wantFoot, "footprint", false, "compute instrument footprints")
	cmd.Flags().BoolVar(&wantSwath, "swath", false, "compute the coverage swath")
	cmd.Flags().Float64Var(&crossTrack, "cross-track", 1.0, "footprint FOV half-width across track, degrees")
	cmd.Flags().Float64Var(&alongTrack, "along-track", 1.0, "footprint FOV half-width along track, degrees")
	cmd.Flags().Float64Var(&minDeg, "min-deg", 0, "off-nadir range lower bound, degrees")
	cmd.Flags().Float64Var(&maxDeg, "max-deg", 0, "off-nadir range upper bound, degrees")
	cmd.Flags().IntVar(&subdivs, "subdivisions", 8, "edge subdivisions per ring")
	_ = cmd.MarkFlagRequired("line1")
	_ = cmd.MarkFlagRequired("line2")
	return cmd
}

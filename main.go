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
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"tile-planner/internal/build"
	"tile-planner/internal/config"
	"tile-planner/internal/graph"
	"tile-planner/internal/metrics"
	"tile-planner/internal/planner"
	"tile-planner/internal/world"
)

var (
	configPath   string
	worldPath    string
	snapshotPath string
	fromFlag     string
	toFlag       string
	outPath      string

	cfg config.Server

	rootCmd = &cobra.Command{
		Use:          "tile-planner",
		Short:        "Hierarchical route planner for tile worlds",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve route queries over HTTP",
		RunE:  runServe,
	}

	routeCmd = &cobra.Command{
		Use:   "route",
		Short: "Plan one route and print it as JSON",
		RunE:  runRoute,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Build a world and print per level statistics",
		RunE:  runInspect,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "planner.yaml", "server config file")
	rootCmd.PersistentFlags().StringVarP(&worldPath, "world", "w", "", "world file (overrides world_file)")

	serveCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "load this hierarchy snapshot instead of building the world")

	routeCmd.Flags().StringVar(&fromFlag, "from", "", "start position as x,y")
	routeCmd.Flags().StringVar(&toFlag, "to", "", "end position as x,y")
	_ = routeCmd.MarkFlagRequired("from")
	_ = routeCmd.MarkFlagRequired("to")

	inspectCmd.Flags().StringVarP(&outPath, "out", "o", "", "write a hierarchy snapshot to this file")

	rootCmd.AddCommand(serveCmd, routeCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadHierarchy loads and builds the world at path with the configured options.
// Worlds without regions get the configured block layout.
func loadHierarchy(cfg config.Server, path string) (*graph.Hierarchy, time.Duration, error) {
	w, err := world.Load(path)
	if err != nil {
		return nil, 0, err
	}
	if w.Layout.Levels() == 0 && cfg.AutoLayout.Levels > 0 {
		w.Layout = build.GridLayout(w.Terrain.Bounds(), cfg.AutoLayout.BlockSize, cfg.AutoLayout.Levels)
	}

	h, elapsed, err := w.BuildTimed(cfg.BuildOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("building %s: %w", path, err)
	}
	return h, elapsed, nil
}

func worldFile() (string, error) {
	if worldPath != "" {
		return worldPath, nil
	}
	if cfg.WorldFile != "" {
		return cfg.WorldFile, nil
	}
	return "", errors.New("no world file: pass --world or set world_file")
}

func runServe(cmd *cobra.Command, args []string) error {
	if worldPath != "" {
		cfg.WorldFile = worldPath
	}
	s := newServer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case snapshotPath != "":
		h, err := world.LoadSnapshot(snapshotPath)
		if err != nil {
			return err
		}
		s.setHierarchy(h)
	case cfg.WorldFile != "":
		if _, err := s.loadWorld(cfg.WorldFile); err != nil {
			return err
		}
		if cfg.WatchWorld {
			err := watchFile(ctx, cfg.WorldFile, func() {
				_, err := s.loadWorld(cfg.WorldFile)
				metrics.RecordReload(err)
				if err != nil {
					slog.Error("world reload failed, keeping previous hierarchy", "path", cfg.WorldFile, "err", err)
					return
				}
				slog.Info("world reloaded", "path", cfg.WorldFile)
			})
			if err != nil {
				slog.Warn("hot reload disabled", "err", err)
			}
		}
	default:
		slog.Info("no world configured, call /buildHierarchy to create one")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runRoute(cmd *cobra.Command, args []string) error {
	from, err := parsePoint(fromFlag)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parsePoint(toFlag)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	path, err := worldFile()
	if err != nil {
		return err
	}

	h, _, err := loadHierarchy(cfg, path)
	if err != nil {
		return err
	}
	route, err := planner.New(h, cfg.PlannerOptions()).FindPath(from, to)
	if err != nil && !errors.Is(err, planner.ErrNoPath) {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(routeResponse(route, err))
}

func runInspect(cmd *cobra.Command, args []string) error {
	path, err := worldFile()
	if err != nil {
		return err
	}

	h, elapsed, err := loadHierarchy(cfg, path)
	if err != nil {
		return err
	}
	if outPath != "" {
		if err := world.SaveSnapshot(h, outPath); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"world":      path,
		"levels":     h.Stats(),
		"components": h.Components(),
		"buildTime":  elapsed.String(),
	})
}

// parsePoint reads "x,y".
func parsePoint(s string) (orb.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return orb.Point{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{x, y}, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/focuscycle/internal/app"
	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/config"
	"github.com/focuscycle/internal/cycle"
	"github.com/focuscycle/internal/db"
	"github.com/focuscycle/internal/logger"
	"go.uber.org/zap"
)

const usage = `usage: focus [-offline] <command> [args]

commands:
  status                      show the active cycle and weekly quotas
  cycles                      list cycles
  new-cycle <name> [days]     create a cycle, days like mon,wed,fri
  use <cycle-id>              switch the active cycle
  delete-cycle <cycle-id>     delete a cycle
  add <name> [-hours h] [-color c] [-priority p]
  edit <subject-id> [-name n] [-hours h] [-color c] [-priority p] [-week m]
  adjust <subject-id> <delta> add or remove minutes from this week
  remove <subject-id>         remove a subject from the active cycle
  jump <subject-id>           make a subject current
  next                        advance to the next subject
  record <minutes>            credit the current subject
  start [-mode m] [-minutes n] run a timer until it completes
  template [name]             list or apply a timer template
  today                       show today's pomodoro stats
  export [cycle-id]           print the cycle as JSON
  import <file>               import a cycle exported earlier`

// env 汇总命令行运行期依赖
type env struct {
	cfg      config.AppConfig
	log      *zap.Logger
	store    *cache.Local
	remote   *cache.Remote
	cycles   *cycle.Repository
	settings app.Settings
	stats    *app.StatsBook
}

func main() {
	args := os.Args[1:]
	offline := false
	if len(args) > 0 && args[0] == "-offline" {
		offline = true
		args = args[1:]
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	e, err := setup(offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "focus: %v\n", err)
		os.Exit(1)
	}

	err = dispatch(e, args[0], args[1:])
	e.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "focus: %v\n", err)
		os.Exit(1)
	}
}

func setup(offline bool) (*env, error) {
	cfg := config.Load()

	mode := cfg.LogMode
	if mode == "production" {
		mode = "development"
	}
	zl, err := logger.New(mode)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	gdb, err := db.OpenCache(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	store := cache.NewLocal(gdb, zl)

	e := &env{cfg: cfg, log: zl, store: store}

	// 未配置远端或显式离线时仅使用本地缓存
	var (
		mirror      cycle.Mirror
		statsMirror app.StatsMirror
	)
	if !offline && cfg.RemoteBaseURL != "" {
		e.remote = cache.NewRemote(cfg.RemoteBaseURL, cfg.RemoteTimeout, zl)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RemoteTimeout)
		if e.remote.Available(ctx) {
			mirror = e.remote
			statsMirror = e.remote
		} else {
			zl.Debug("remote unavailable, running offline", zap.String("url", cfg.RemoteBaseURL))
		}
		cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.RemoteTimeout)
	defer cancel()
	e.cycles = cycle.Open(ctx, store, mirror, cycle.WithLogger(zl))
	e.settings = app.LoadSettings(store)
	e.stats = app.NewStatsBook(store, statsMirror, time.Now, zl)
	return e, nil
}

func (e *env) close() {
	e.cycles.Close()
	e.stats.Wait()
	_ = e.log.Sync()
}

package main

import (
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nova-db/pagecache/internal/bufferpool"
	"github.com/nova-db/pagecache/internal/config"
	"github.com/nova-db/pagecache/internal/storage"
	"github.com/nova-db/pagecache/internal/wal"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional; built-in defaults otherwise)")
	dataDir := flag.String("data-dir", "", "Override storage.workdir from the config")
	dumpPage := flag.Int("dump-page", -1, "Fetch one page id through the pool, hex-dump its raw bytes, and exit")
	dropData := flag.Bool("drop-data", false, "Remove every segment file under data-dir and exit")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *dataDir != "" {
		cfg.Storage.Workdir = *dataDir
	}

	if err := os.MkdirAll(cfg.Storage.Workdir, 0o755); err != nil {
		slog.Error("failed to create data directory", "dir", cfg.Storage.Workdir, "error", err)
		os.Exit(1)
	}

	walMgr, err := wal.Open(cfg.Storage.Workdir)
	if err != nil {
		slog.Error("failed to open write-ahead log", "dir", cfg.Storage.Workdir, "error", err)
		os.Exit(1)
	}
	defer func() { _ = walMgr.Close() }()

	sm := storage.NewStorageManager()
	fs := storage.LocalFileSet{Dir: cfg.Storage.Workdir, Base: "pagecache.db"}
	disk := storage.NewPagecacheDisk(sm, fs)

	if *dropData {
		if err := storage.RemoveAllSegments(fs); err != nil {
			slog.Error("drop-data: failed to remove segments", "error", err)
			os.Exit(1)
		}
		slog.Info("drop-data: removed all segment files", "dir", cfg.Storage.Workdir)
		return
	}

	// Replay any page images left by a prior run's AppendPageImage calls.
	// A fresh workdir has an empty log, so this is a no-op on first boot.
	if err := walMgr.Recover(storage.NewWALWriter(sm)); err != nil {
		slog.Error("wal recovery failed", "error", err)
		os.Exit(1)
	}

	pool, err := bufferpool.NewManager(
		cfg.BufferPool.PoolSize,
		disk,
		cfg.BufferPool.ReplacerK,
		cfg.BufferPool.BucketSize,
		bufferpool.ReplacerPolicy(cfg.BufferPool.ReplacerPolicy),
		wal.NewLogHook(walMgr),
	)
	if err != nil {
		slog.Error("failed to construct buffer pool", "error", err)
		os.Exit(1)
	}

	slog.Info("pagecache started",
		"app", cfg.AppName,
		"data_dir", cfg.Storage.Workdir,
		"pool_size", cfg.BufferPool.PoolSize,
		"replacer_policy", cfg.BufferPool.ReplacerPolicy,
	)

	if *dumpPage >= 0 {
		pageID := bufferpool.PageID(*dumpPage)
		frame, err := pool.FetchPage(pageID)
		if err != nil {
			slog.Error("dump-page: fetch failed", "page_id", pageID, "error", err)
			os.Exit(1)
		}
		// The pool treats a page's bytes as opaque, so a raw hex dump is all
		// this layer can say about one without assuming a record format.
		os.Stdout.WriteString(hex.Dump(frame.Data()))
		_ = pool.UnpinPage(pageID, false)
		return
	}

	shutdown := func() {
		slog.Info("flushing all resident pages before shutdown")
		if err := pool.FlushAllPages(); err != nil {
			slog.Error("flush on shutdown failed", "error", err)
		}
		_ = walMgr.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("shutting down")
		shutdown()
		os.Exit(0)
	}()

	// This process exposes the buffer pool core in isolation; no query
	// engine, catalog, or wire protocol sits on top of it yet.
	select {}
}

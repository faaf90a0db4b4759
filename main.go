package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"arenaserver/server"
)

// Arena 入口：启动 HTTP + WebSocket 服务，并运行权威竞技场循环
func main() {
	var addr, envFile, logFile, logLevel string
	flag.StringVar(&addr, "addr", ":8080", "server listen address, e.g. :8080")
	flag.StringVar(&envFile, "env", ".env", "optional env file with ARENA_* overrides")
	flag.StringVar(&logFile, "log", "app.log", "log file path")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(logFile, logLevel); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	cfg, err := server.LoadConfig(envFile)
	if err != nil {
		server.Log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	arena := server.NewArena(cfg)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = arena.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", arena.HandleWS)
	// 前后端分离：将 / 映射到 public 目录的静态资源
	mux.Handle("/", http.FileServer(http.Dir("public")))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", arena.HandleAdminConfig)
	mux.HandleFunc("/admin/avatars", arena.HandleAvatars)
	mux.HandleFunc("/metrics", arena.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		server.Log.Infof("Arena listening on %s; open http://localhost%v/", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	server.Log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		server.Log.Warnf("http shutdown: %v", err)
	}
	<-done
}

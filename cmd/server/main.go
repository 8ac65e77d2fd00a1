package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/palemoky/chkobba/internal/config"
	"github.com/palemoky/chkobba/internal/logger"
	"github.com/palemoky/chkobba/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置文件失败，使用默认配置: %v\n", err)
		cfg = config.Default()
	}

	log, err := logger.Init(cfg.Server.LogMode)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// 收到信号后进入优雅关闭
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 后台协程和 HTTP 服务在优雅关闭完成后才停止
	serveCtx, cancelServe := context.WithCancel(context.Background())
	defer cancelServe()

	srv, err := server.NewServer(serveCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("创建服务器失败: %w", err)
	}

	log.Info("🎴 Chkobba 服务器启动中...")

	g, gctx := errgroup.WithContext(serveCtx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-sigCtx.Done():
		}
		log.Info("正在关闭服务器...", zap.Duration("timeout", cfg.Server.ShutdownTimeoutDuration()))
		srv.GracefulShutdown(cfg.Server.ShutdownTimeoutDuration())
		cancelServe()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("服务器运行失败: %w", err)
	}
	return nil
}

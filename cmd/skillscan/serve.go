package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"skillscan/config"
	"skillscan/internal/deps"
	"skillscan/internal/handler"
	"skillscan/internal/router"
	"skillscan/internal/service"
	"skillscan/internal/storage"
	"skillscan/internal/taskrunner"
	"skillscan/log"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API and run queued extractions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "listen host, overrides [server].host"},
			&cli.IntFlag{Name: "port", Usage: "listen port, overrides [server].port"},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	created, err := config.LoadOrCreateConfig()
	if err != nil {
		return cli.Exit(fmt.Sprintf("加载配置失败 load config: %v", err), 2)
	}
	if created {
		log.GetLogger().Info("default config written")
	}
	if host := cmd.String("host"); host != "" {
		config.Conf.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		config.Conf.Server.Port = int(port)
	}
	if err := config.CheckConfig(); err != nil {
		log.GetLogger().Error("加载配置失败", zap.Error(err))
		return cli.Exit(err.Error(), 2)
	}

	if err := storage.InitDB(); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if count, err := storage.MarkStaleRuns(); err != nil {
		log.GetLogger().Warn("Failed to mark stale runs", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("Marked stale runs as failed", zap.Int64("count", count))
	}

	states := deps.ResolveDependencyInventory(config.Conf.Interval.FFmpegPath, config.Conf.Hint.TesseractPath, config.Conf.Hint.Engine)
	if err := deps.Usable(states); err != nil {
		log.GetLogger().Error("依赖环境准备失败", zap.Error(err))
		return err
	}

	svc, err := service.NewService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	runner := taskrunner.New(svc, taskrunner.Config{
		QueueSize:   config.Conf.Server.QueueSize,
		Concurrency: config.Conf.Server.Concurrency,
	})
	defer runner.Close()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.SetupRouter(engine, handler.NewHandler(runner))

	addr := fmt.Sprintf("%s:%d", config.Conf.Server.Host, config.Conf.Server.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	errCh := make(chan error, 1)
	go func() {
		log.GetLogger().Info("服务启动 server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("后端服务启动失败 server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.GetLogger().Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

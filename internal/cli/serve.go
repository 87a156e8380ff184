package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
	"github.com/nerdneilsfield/go-pdf-translator/internal/logger"
	"github.com/nerdneilsfield/go-pdf-translator/internal/queue"
	"github.com/nerdneilsfield/go-pdf-translator/internal/server"
	"github.com/nerdneilsfield/go-pdf-translator/internal/store"
)

// NewServeCommand 创建 serve 命令
func NewServeCommand() *cobra.Command {
	var (
		addr       string
		withWorker bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Long: `启动 HTTP 服务，提供 /translate、/generate-pdf 和任务查询接口。
使用内存队列时必须同时运行 --with-worker，否则作业不会被处理。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()
			if addr != "" {
				rt.cfg.Server.Addr = addr
			}
			if rt.cfg.Queue.Backend == config.BackendMemory && !withWorker {
				rt.log.Warn("memory queue without --with-worker: jobs will never be processed")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rt, withWorker)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "监听地址，覆盖 server.addr")
	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "在同一进程中运行作业消费者")
	return cmd
}

func runServe(ctx context.Context, rt *runtime, withWorker bool) error {
	st, err := rt.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	q, err := queue.New(rt.cfg.Queue)
	if err != nil {
		return err
	}
	defer q.Close()

	opts := []server.Option{server.WithLogger(logger.Named(rt.log, "http"))}
	if url := redisURLForLimiter(rt.cfg); url != "" {
		client, err := newRedisClient(url)
		if err != nil {
			return err
		}
		defer client.Close()
		limiterStore, err := server.NewRedisLimiterStore(client)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithLimiterStore(limiterStore))
	}

	srv, err := server.New(rt.cfg.Server, rt.cfg.AppID, st, q, rt.newRenderer(), opts...)
	if err != nil {
		return err
	}

	color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "pdf-translator listening on %s (store=%s, queue=%s, provider=%s)\n",
		rt.cfg.Server.Addr, rt.cfg.Store.Backend, rt.cfg.Queue.Backend, rt.cfg.Translation.Provider)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	if withWorker {
		g.Go(func() error { return runWorker(gctx, rt, st, q) })
	}
	return g.Wait()
}

// NewWorkerCommand 创建 worker 命令
func NewWorkerCommand() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "只运行作业消费者（需要 Redis 队列）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()
			if workers > 0 {
				rt.cfg.Queue.Workers = workers
			}
			if rt.cfg.Queue.Backend != config.BackendRedis {
				return fmt.Errorf("standalone worker requires the redis queue backend, got %q", rt.cfg.Queue.Backend)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := rt.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			q, err := queue.New(rt.cfg.Queue)
			if err != nil {
				return err
			}
			defer q.Close()

			return runWorker(ctx, rt, st, q)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "并发处理的作业数，覆盖 queue.workers")
	return cmd
}

func runWorker(ctx context.Context, rt *runtime, st store.TaskStore, q queue.Queue) error {
	processor, err := rt.newProcessor(st, nil)
	if err != nil {
		return err
	}

	w, err := queue.NewWorker(q, processor.Handle, rt.cfg.Queue.Workers, logger.Named(rt.log, "worker"))
	if err != nil {
		return err
	}

	rt.log.Info("worker started",
		zap.Int("workers", rt.cfg.Queue.Workers),
		zap.String("provider", rt.cfg.Translation.Provider))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// redisURLForLimiter 有 Redis 可用时让多个实例共享限流计数
func redisURLForLimiter(cfg *config.Config) string {
	if cfg.Server.RateLimit == "" {
		return ""
	}
	if cfg.Queue.Backend == config.BackendRedis {
		return cfg.Queue.RedisURL
	}
	if cfg.Store.Backend == config.BackendRedis {
		return cfg.Store.RedisURL
	}
	return ""
}

func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

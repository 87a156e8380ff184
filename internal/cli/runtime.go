package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
	"github.com/nerdneilsfield/go-pdf-translator/internal/logger"
	"github.com/nerdneilsfield/go-pdf-translator/internal/render"
	"github.com/nerdneilsfield/go-pdf-translator/internal/store"
	"github.com/nerdneilsfield/go-pdf-translator/internal/translator"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/document"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/stats"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/translation"
)

const statsFileName = "provider_stats.json"

// runtime 命令共享的配置和日志
type runtime struct {
	cfg *config.Config
	log *zap.Logger
}

// loadRuntime 加载 .env 和配置文件，命令行标志优先
func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debugMode
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verboseMode
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &runtime{
		cfg: cfg,
		log: logger.NewLoggerWithVerbose(cfg.Debug, cfg.Verbose),
	}, nil
}

func (rt *runtime) close() {
	_ = rt.log.Sync()
}

// newProvider 创建配置中选定的提供商，statsMgr 非空时记录调用统计
func (rt *runtime) newProvider(name string, statsMgr *stats.StatsManager) (providers.Provider, error) {
	pc := rt.cfg.Provider(name)
	provider, err := factory.CreateProvider(name, pc)
	if err != nil {
		return nil, err
	}
	if statsMgr != nil {
		provider = stats.NewStatisticsMiddleware(provider, statsMgr, name, pc.Model)
	}
	return provider, nil
}

// newService 组装翻译服务：提供商、可选缓存和分块器
func (rt *runtime) newService(provider providers.Provider) (translation.Service, error) {
	tc := rt.cfg.TranslationServiceConfig()

	opts := []translation.Option{
		translation.WithProvider(provider),
		translation.WithLogger(logger.Named(rt.log, "translation")),
	}
	cache, err := translation.NewCache(tc.EnableCache, tc.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open translation cache: %w", err)
	}
	if cache != nil {
		opts = append(opts, translation.WithCache(cache))
	}

	return translation.New(tc, opts...)
}

func (rt *runtime) newNormalizer() *document.Normalizer {
	return document.NewNormalizer(document.NormalizerOptions{
		PreserveParagraphs: rt.cfg.Normalizer.PreserveParagraphs,
	})
}

// newProcessor 创建处理作业的 Processor
func (rt *runtime) newProcessor(st store.TaskStore, statsMgr *stats.StatsManager) (*translator.Processor, error) {
	provider, err := rt.newProvider(rt.cfg.Translation.Provider, statsMgr)
	if err != nil {
		return nil, err
	}
	svc, err := rt.newService(provider)
	if err != nil {
		return nil, err
	}

	return translator.NewProcessor(st, svc,
		translator.WithNormalizer(rt.newNormalizer()),
		translator.WithLogger(logger.Named(rt.log, "processor")),
	), nil
}

func (rt *runtime) newRenderer() *render.PDFRenderer {
	return render.NewPDFRenderer(rt.cfg.Render, logger.Named(rt.log, "render"))
}

func (rt *runtime) openStore(ctx context.Context) (store.TaskStore, error) {
	st, err := store.New(ctx, rt.cfg.Store, logger.Named(rt.log, "store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s task store: %w", rt.cfg.Store.Backend, err)
	}
	return st, nil
}

// statsPath 提供商统计文件位置，优先放在缓存目录
func (rt *runtime) statsPath() string {
	if dir := rt.cfg.Translation.CacheDir; dir != "" {
		return filepath.Join(dir, statsFileName)
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pdf-translator", statsFileName)
	}
	return filepath.Join(os.TempDir(), "pdf-translator", statsFileName)
}

// loadStats 读取已有统计，文件不存在时从空开始
func (rt *runtime) loadStats() *stats.StatsManager {
	mgr := stats.NewStatsManager(rt.statsPath(), logger.Named(rt.log, "stats"))
	if err := mgr.LoadFromDB(); err != nil {
		rt.log.Warn("failed to load provider statistics", zap.Error(err))
	}
	return mgr
}

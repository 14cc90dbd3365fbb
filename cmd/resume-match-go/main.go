package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/api/router"
	"resume-match-go/internal/config"
	"resume-match-go/internal/embedding"
	"resume-match-go/internal/ingest"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/matcher"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/tracing"

	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "resume-match-go" //nolint:gochecknoglobals
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时在默认位置查找")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	initLogger(cfg)
	logger.Info().Str("address", cfg.Server.Address).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracerProvider, err := tracing.InitProvider(ctx, tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	logger.Info().Msg("存储服务初始化成功")

	embedder, err := embedding.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化阿里云Embedder失败")
	}
	embedSvc, err := embedding.NewService(embedder, embedding.NewVectorCache(), cfg.Aliyun.Embedding)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化嵌入服务失败")
	}
	logger.Info().Str("model", embedSvc.ModelVersion()).Msg("嵌入服务初始化成功")

	extractor := skills.NewVocabularyExtractor(loadVocabulary(cfg))

	var searcher matcher.JobSearcher
	if storageManager.Qdrant != nil {
		searcher = storageManager.Qdrant
	}
	matchSvc, err := matcher.NewService(embedSvc, extractor, searcher, cfg.Matcher)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化匹配服务失败")
	}
	logger.Info().Msg("匹配服务初始化成功")

	pdfExtractor, err := parser.NewPDFTextExtractor(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化PDF解析器失败")
	}

	// 岗位入库消费者，MQ未配置时跳过
	var consumer *ingest.Consumer
	if storageManager.RabbitMQ != nil {
		consumer, err = ingest.NewConsumer(storageManager, embedSvc, extractor, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化岗位入库消费者失败")
		}
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("启动岗位入库消费者失败")
		}
		logger.Info().Msg("岗位入库消费者已启动")
	} else {
		logger.Warn().Msg("RabbitMQ未配置，岗位入库消费者未启动")
	}

	hs := &router.Handlers{
		Match:   handler.NewMatchHandler(cfg, matchSvc, storageManager),
		Rank:    handler.NewRankHandler(cfg, matchSvc, storageManager),
		Job:     handler.NewJobHandler(cfg, storageManager),
		Resume:  handler.NewResumeHandler(cfg, storageManager, pdfExtractor, matchSvc),
		Metrics: handler.NewMetricsHandler(matchSvc, storageManager),
	}

	h := router.New(cfg, hs)
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	if consumer != nil {
		consumer.Stop()
		logger.Info().Msg("岗位入库消费者已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("链路追踪关闭失败")
	}

	logger.Info().Msg("优雅退出完成")
}

func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	logger.Logger = logger.Logger.With().
		Str("app", serviceName).
		Str("version", version).
		Logger()

	// Hertz框架日志走同一个zerolog实例
	glog.SetLogger(hertzadapter.From(logger.Logger))
}

// loadVocabulary 加载技能词表，自定义词表加载失败时回退到内置词表
func loadVocabulary(cfg *config.Config) *skills.Vocabulary {
	if cfg.Skills.VocabularyPath == "" {
		return skills.DefaultVocabulary()
	}
	vocab, err := skills.LoadVocabulary(cfg.Skills.VocabularyPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Skills.VocabularyPath).Msg("加载自定义技能词表失败，使用内置词表")
		return skills.DefaultVocabulary()
	}
	return vocab
}

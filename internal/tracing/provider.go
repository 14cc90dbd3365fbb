package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TracerName 全局Tracer名称
const TracerName = "resume-match-go"

// Config 链路追踪配置
type Config struct {
	ServiceName    string  `yaml:"service_name"`    // 服务名称
	ServiceVersion string  `yaml:"service_version"` // 服务版本
	Environment    string  `yaml:"environment"`     // 部署环境: dev, staging, prod
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`   // OTLP gRPC 接收端地址，为空时禁用上报
	SampleRate     float64 `yaml:"sample_rate"`     // 采样率 0.0 - 1.0
}

// Provider 包装OpenTelemetry的TracerProvider，統一管理生命周期
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitProvider 初始化链路追踪
// 当OTLPEndpoint为空时返回no-op实现，业务代码无需感知
func InitProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = TracerName
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.OTLPEndpoint == "" {
		return &Provider{tracer: otel.Tracer(TracerName)}, nil
	}

	conn, err := grpc.Dial(cfg.OTLPEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("连接OTLP接收端失败: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("创建OTLP导出器失败: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("创建资源描述失败: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Tracer 返回底层Tracer
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown 关闭TracerProvider并刷新未导出的span
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/storage/models"
)

var mysqlTracer = otel.Tracer("resume-match-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	dbSystem       string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", sqlStatement),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if db.Statement.RowsAffected > 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		} else {
			span.SetAttributes(attribute.Int64("db.rows_affected", 0))
		}

		// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.SetAttributes(attribute.String("error.message", db.Error.Error()))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		dbSystem:       "mysql",
		disableErrSkip: true,
	}
}

// WithDisableErrSkip 设置是否禁用错误跳过
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// Database 关系数据库接口
type Database interface {
	// DB 返回GORM数据库连接实例
	DB() *gorm.DB

	// Close 关闭数据库连接
	Close() error
}

// 确保MySQL实现了Database接口
var _ Database = (*MySQL)(nil)

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true, // 禁用自动外键创建
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true, // 开启预编译语句缓存
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	// 连接池参数
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	tracingPlugin := NewGormTracingPlugin(cfg.Database).WithDisableErrSkip(true)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.Job{},
		&models.JobVector{},
		&models.ResumeDocument{},
		&models.MatchEvaluation{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	log.Println("GORM数据库结构迁移成功")
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// UpsertJob 写入或更新岗位记录，以content_hash为冲突键实现幂等入库
func (m *MySQL) UpsertJob(ctx context.Context, job *models.Job) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.UpsertJob",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.operation", "INSERT_ON_DUPLICATE"),
		attribute.String("db.sql.table", "jobs"),
		attribute.String("job.id", job.JobID),
	)

	err := m.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "content_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "company", "location", "description_text",
				"tags_json", "salary_min", "salary_max",
				"employment_type", "experience_level", "status",
			}),
		}).Create(job).Error

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetJobByID 通过JobID获取岗位记录
func (m *MySQL) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListActiveJobs 分页列出ACTIVE状态的岗位
func (m *MySQL) ListActiveJobs(ctx context.Context, offset, limit int) ([]models.Job, int64, error) {
	var jobs []models.Job
	var total int64

	db := m.db.WithContext(ctx).Model(&models.Job{}).Where("status = ?", "ACTIVE")
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计岗位数量失败: %w", err)
	}
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("查询岗位列表失败: %w", err)
	}
	return jobs, total, nil
}

// SaveJobVector 写入或更新岗位向量记录
func (m *MySQL) SaveJobVector(ctx context.Context, jobVector *models.JobVector) error {
	return m.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"vector_representation", "embedding_model_version", "dimension", "qdrant_point_id",
			}),
		}).Create(jobVector).Error
}

// GetJobVectorByID 通过JobID获取岗位向量记录
func (m *MySQL) GetJobVectorByID(ctx context.Context, jobID string) (*models.JobVector, error) {
	var jobVector models.JobVector
	if err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&jobVector).Error; err != nil {
		return nil, err
	}
	return &jobVector, nil
}

// CreateResumeDocument 创建简历文档记录
func (m *MySQL) CreateResumeDocument(ctx context.Context, doc *models.ResumeDocument) error {
	return m.db.WithContext(ctx).Create(doc).Error
}

// UpdateResumeProcessingStatus 更新简历文档处理状态
func (m *MySQL) UpdateResumeProcessingStatus(ctx context.Context, resumeUUID string, status string) error {
	return m.db.WithContext(ctx).Model(&models.ResumeDocument{}).
		Where("resume_uuid = ?", resumeUUID).Update("processing_status", status).Error
}

// MarkResumeParsed 解析成功后一次性写入解析文本路径并置为完成状态
func (m *MySQL) MarkResumeParsed(ctx context.Context, resumeUUID string, parsedTextPath string) error {
	return m.db.WithContext(ctx).Model(&models.ResumeDocument{}).
		Where("resume_uuid = ?", resumeUUID).
		Updates(map[string]interface{}{
			"parsed_text_path_oss": parsedTextPath,
			"processing_status":    constants.ResumeStatusCompleted,
		}).Error
}

// GetResumeDocumentByHash 通过内容哈希获取简历文档记录
func (m *MySQL) GetResumeDocumentByHash(ctx context.Context, contentHash string) (*models.ResumeDocument, error) {
	var doc models.ResumeDocument
	if err := m.db.WithContext(ctx).Where("content_hash = ?", contentHash).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveMatchEvaluation 写入或更新匹配评估记录
// 同一对(简历哈希, JD哈希)只保留最新一次评估结果
func (m *MySQL) SaveMatchEvaluation(ctx context.Context, eval *models.MatchEvaluation) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SaveMatchEvaluation",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.operation", "INSERT_ON_DUPLICATE"),
		attribute.String("db.sql.table", "match_evaluations"),
		attribute.Float64("match.score", eval.MatchScore),
	)

	err := m.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "resume_hash"}, {Name: "job_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"match_score", "strengths_json", "gaps_json", "skills_json",
				"degraded", "embedding_version", "evaluated_at",
			}),
		}).Create(eval).Error

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

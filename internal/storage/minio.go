package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadResumeFile 流式上传原始简历文件并同时计算内容哈希
	// 返回对象键和SHA-256哈希
	UploadResumeFile(ctx context.Context, resumeUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error)

	// UploadParsedText 上传解析后的简历文本
	UploadParsedText(ctx context.Context, resumeUUID string, text string) (string, error)

	// GetResumeFile 获取原始简历文件
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)

	// GetParsedText 获取解析后的简历文本
	GetParsedText(ctx context.Context, objectKey string) (string, error)

	// GetPresignedURL 获取原始文件的预签名URL
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)

	// DeleteFile 删除原始文件
	DeleteFile(ctx context.Context, objectKey string) error
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	originalBucket string
	parsedBucket   string
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	originalBucket := cfg.OriginalsBucket
	if originalBucket == "" {
		originalBucket = "resume-originals"
	}

	parsedBucket := cfg.ParsedTextBucket
	if parsedBucket == "" {
		parsedBucket = "resume-parsed-text"
	}

	m := &MinIO{
		client:         client,
		cfg:            cfg,
		originalBucket: originalBucket,
		parsedBucket:   parsedBucket,
	}

	if err := m.ensureBucketExists(originalBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保原始简历存储桶 %s 存在失败: %w", originalBucket, err)
	}
	if err := m.ensureBucketExists(parsedBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保解析文本存储桶 %s 存在失败: %w", parsedBucket, err)
	}

	// 生命周期规则失败不阻断启动
	if cfg.OriginalFileExpireDays > 0 || cfg.ParsedTextExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("设置MinIO生命周期规则失败")
		}
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("originals_bucket", originalBucket).
		Str("parsed_bucket", parsedBucket).
		Msg("MinIO客户端初始化成功")
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		logger.Info().Str("bucket", bucketName).Msg("已创建MinIO存储桶")
	}
	return nil
}

// setupLifecycleRules 设置对象生命周期规则
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return fmt.Errorf("为原始文件存储桶 %s 设置生命周期失败: %w", m.originalBucket, err)
		}
	}
	if m.cfg.ParsedTextExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.parsedBucket, "expire-parsed-text", m.cfg.ParsedTextExpireDays); err != nil {
			return fmt.Errorf("为解析文本存储桶 %s 设置生命周期失败: %w", m.parsedBucket, err)
		}
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置生命周期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lcConfig := lifecycle.NewConfiguration()
	lcConfig.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}

	if err := m.client.SetBucketLifecycle(ctx, bucketName, lcConfig); err != nil {
		return err
	}
	logger.Debug().Str("bucket", bucketName).Int("expire_days", expiryDays).Msg("已设置存储桶生命周期")
	return nil
}

// UploadResumeFile 流式上传原始简历文件并同时计算SHA-256哈希
// 返回: objectKey, hashHex, error
func (m *MinIO) UploadResumeFile(ctx context.Context, resumeUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error) {
	objectName := fmt.Sprintf("resume/%s/original%s", resumeUUID, fileExt)
	contentType := getContentType(fileExt)

	// 使用TeeReader在上传的同时计算哈希
	hash := sha256.New()
	teeReader := io.TeeReader(reader, hash)

	info, err := m.client.PutObject(ctx, m.originalBucket, objectName, teeReader,
		fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", "", fmt.Errorf("流式上传文件到MinIO失败: %w", err)
	}

	hashHex := hex.EncodeToString(hash.Sum(nil))

	logger.Debug().
		Str("object", objectName).
		Str("etag", info.ETag).
		Int64("size", info.Size).
		Msg("原始简历文件上传成功")
	return objectName, hashHex, nil
}

// UploadParsedText 上传解析后的简历文本
func (m *MinIO) UploadParsedText(ctx context.Context, resumeUUID string, text string) (string, error) {
	objectName := fmt.Sprintf("resume/%s/parsed_text.txt", resumeUUID)

	_, err := m.client.PutObject(ctx, m.parsedBucket, objectName, strings.NewReader(text),
		int64(len(text)), minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return "", fmt.Errorf("上传解析文本 %s 到存储桶 %s 失败: %w", objectName, m.parsedBucket, err)
	}
	return objectName, nil
}

// downloadObject 从指定存储桶下载对象
func (m *MinIO) downloadObject(ctx context.Context, bucketName, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucketName, objectKey, err)
	}
	defer obj.Close()

	// Stat确认对象存在且可访问
	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", bucketName, objectKey, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucketName, objectKey, err)
	}
	return data, nil
}

// GetResumeFile 获取原始简历文件
func (m *MinIO) GetResumeFile(ctx context.Context, objectKey string) ([]byte, error) {
	return m.downloadObject(ctx, m.originalBucket, objectKey)
}

// GetParsedText 获取解析后的简历文本
func (m *MinIO) GetParsedText(ctx context.Context, objectKey string) (string, error) {
	data, err := m.downloadObject(ctx, m.parsedBucket, objectKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetPresignedURL 获取原始文件的预签名URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := m.client.PresignedGetObject(ctx, m.originalBucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteFile 删除原始文件
func (m *MinIO) DeleteFile(ctx context.Context, objectKey string) error {
	err := m.client.RemoveObject(ctx, m.originalBucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}

// 获取内容类型
func getContentType(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

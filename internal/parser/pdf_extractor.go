package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"

	"resume-match-go/internal/logger"
)

// ExtractorVersion 写入简历记录的解析器版本标识
const ExtractorVersion = "eino-pdf-v1"

// PDFTextExtractor 使用Eino PDF Parser提取简历文本
type PDFTextExtractor struct {
	parser *pdf.PDFParser
}

// NewPDFTextExtractor 初始化PDF文本提取器
// 不按页面分割，获取整个文档的连续文本
func NewPDFTextExtractor(ctx context.Context) (*PDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF解析器失败: %w", err)
	}

	return &PDFTextExtractor{parser: p}, nil
}

// ExtractText 从io.Reader中提取完整的纯文本内容和解析元数据
func (e *PDFTextExtractor) ExtractText(ctx context.Context, reader io.Reader, uri string) (string, map[string]interface{}, error) {
	startTime := time.Now()

	extraMeta := map[string]interface{}{
		"source_uri":      uri,
		"extraction_time": startTime.Format(time.RFC3339),
	}

	// 单个文档的解析不应超过30秒
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(extraMeta),
	)

	duration := time.Since(startTime)
	if err != nil {
		return "", extraMeta, fmt.Errorf("解析PDF失败 (URI %s): %w", uri, err)
	}
	if len(docs) == 0 {
		return "", extraMeta, fmt.Errorf("PDF解析无结果 (URI %s)", uri)
	}

	// 合并所有文档的内容，以防解析器返回多个
	var fullContent string
	for i, doc := range docs {
		fullContent += doc.Content
		if i < len(docs)-1 {
			fullContent += "\n\n"
		}
	}

	metadata := make(map[string]interface{})
	if docs[0].MetaData != nil {
		metadata = docs[0].MetaData
	}
	for k, v := range extraMeta {
		metadata[k] = v
	}
	metadata["processing_duration_ms"] = duration.Milliseconds()
	metadata["document_count"] = len(docs)
	metadata["text_length"] = len(fullContent)

	logger.Debug().
		Str("uri", uri).
		Int("chars", len(fullContent)).
		Dur("duration", duration).
		Msg("PDF文本提取完成")
	return fullContent, metadata, nil
}

// ExtractTextFromBytes 从字节数组提取文本内容
func (e *PDFTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	return e.ExtractText(ctx, bytes.NewReader(data), uri)
}

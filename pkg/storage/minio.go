// Package storage提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/log"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) error {
	var err error

	// 1. 初始化 MinIO 客户端
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	ctx := context.Background()
	exists, err := MinioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := MinioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	}
	return nil
}

// objectPutter 是快照需要的最小 MinIO 能力，便于测试替换。
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ExportSnapshotter 把超过摘要阈值的完整结果集保存为 JSON，供导出接口读取。
type ExportSnapshotter struct {
	putter objectPutter
	bucket string
	now    func() time.Time
}

// NewExportSnapshotter 使用给定的 MinIO 客户端创建快照器。
func NewExportSnapshotter(client *minio.Client, bucket string) *ExportSnapshotter {
	return &ExportSnapshotter{putter: client, bucket: bucket, now: time.Now}
}

type snapshot struct {
	ExportID  string      `json:"export_id"`
	Intent    string      `json:"intent"`
	CreatedAt time.Time   `json:"created_at"`
	Rows      []model.Row `json:"rows"`
}

// Save 上传快照并返回 export id。
func (s *ExportSnapshotter) Save(ctx context.Context, intent model.Intent, rows []model.Row) (string, error) {
	id := uuid.NewString()
	snap := snapshot{ExportID: id, Intent: string(intent), CreatedAt: s.now(), Rows: rows}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal export snapshot: %w", err)
	}

	object := ObjectName(id, s.now())
	_, err = s.putter.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export snapshot %s: %w", object, err)
	}
	log.Infof("[Storage] 导出快照已保存: %s (%d 行)", object, len(rows))
	return id, nil
}

// ObjectName 返回快照在存储桶中的对象名，按日期分目录。
func ObjectName(exportID string, at time.Time) string {
	return fmt.Sprintf("exports/%s/%s.json", at.Format("2006/01/02"), exportID)
}

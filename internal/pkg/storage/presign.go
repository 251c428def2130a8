package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/bonlog/bonlog/internal/pkg/env"
)

// Media uploads go straight from the browser to the S3-compatible store via
// presigned URLs; the application never proxies file bytes.

const presignExpiry = 15 * time.Minute

var (
	initOnce sync.Once
	presign  *s3.PresignClient
	initErr  error
)

// PresignedUpload is returned to the client for a direct PUT upload.
type PresignedUpload struct {
	ObjectKey string `json:"object_key"`
	UploadURL string `json:"upload_url"`
	ExpiresIn int64  `json:"expires_in"`
}

func presignClient(ctx context.Context) (*s3.PresignClient, error) {
	initOnce.Do(func() {
		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(env.GetEnv("S3_REGION", "ap-northeast-1")),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				env.GetEnv("S3_ACCESS_KEY_ID", ""),
				env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
				"",
			)),
		)
		if err != nil {
			initErr = fmt.Errorf("load AWS config: %w", err)
			return
		}

		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if endpoint := env.GetEnv("S3_ENDPOINT_URL", ""); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
				// MinIO and most S3-compatible stores need path-style URLs.
				o.UsePathStyle = true
			}
		})
		presign = s3.NewPresignClient(client)
	})
	return presign, initErr
}

// NewUploadURL creates a presigned PUT URL for one media object. The object
// key is namespaced per user so keys never collide.
func NewUploadURL(ctx context.Context, userID uint, mimeType string) (*PresignedUpload, error) {
	client, err := presignClient(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("media/%d/%s%s", userID, uuid.NewString(), extensionFor(mimeType))
	req, err := client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(env.GetEnv("S3_BUCKET", "bonlog-media")),
		Key:         aws.String(key),
		ContentType: aws.String(mimeType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &PresignedUpload{
		ObjectKey: key,
		UploadURL: req.URL,
		ExpiresIn: int64(presignExpiry.Seconds()),
	}, nil
}

// NewDownloadURL creates a presigned GET URL for rendering a media object.
func NewDownloadURL(ctx context.Context, objectKey string) (string, error) {
	client, err := presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(env.GetEnv("S3_BUCKET", "bonlog-media")),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return req.URL, nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ""
	}
}

// IsAllowedMimeType limits uploads to the formats the timeline can render.
func IsAllowedMimeType(mimeType string) bool {
	return extensionFor(mimeType) != ""
}

// KindForMimeType classifies a mime type as image or video.
func KindForMimeType(mimeType string) string {
	if strings.HasPrefix(strings.ToLower(mimeType), "video/") {
		return "video"
	}
	return "image"
}

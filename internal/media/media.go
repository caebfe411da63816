package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"socialfeed/internal/config"
)

// Service stores media blobs in MinIO and hands out short-lived
// presigned GET URLs so clients stream media without passing through
// the API service.
type Service struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	expiry        time.Duration
}

// NewService constructs an S3-compatible client against the MinIO endpoint.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.MinioAccessKey, cfg.MinioSecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for MinIO: %w", err)
	}

	endpoint := "http://" + cfg.MinioEndpoint
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &Service{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucket:        cfg.MinioBucket,
		expiry:        cfg.PresignExpiry,
	}, nil
}

// Upload decodes base64 media, stores it, and returns the object key.
// Key format: {media_type}/{uuid}.{ext}.
func (s *Service) Upload(ctx context.Context, mediaBase64, mediaType string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(mediaBase64)
	if err != nil {
		return "", fmt.Errorf("decode media payload: %w", err)
	}

	ext, contentType := "jpg", "image/jpeg"
	if mediaType == "video" {
		ext, contentType = "mp4", "video/mp4"
	}
	key := fmt.Sprintf("%s/%s.%s", mediaType, uuid.NewString(), ext)

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	return key, nil
}

// PresignGet returns a temporary GET URL for the object, or nil when
// presigning fails; a feed entry without media beats a failed request.
func (s *Service) PresignGet(ctx context.Context, mediaKey string) *string {
	if mediaKey == "" {
		return nil
	}

	out, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(mediaKey),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		log.Printf("[Media] presign failed for %s: %v", mediaKey, err)
		return nil
	}
	return &out.URL
}

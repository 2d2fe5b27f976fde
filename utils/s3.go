package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

var S3Client *s3.Client

func InitS3(logger *zap.Logger) error {
	endpoint := os.Getenv("S3_ENDPOINT_URL")
	accessKeyID := MustGetEnv("S3_ACCESS_KEY_ID")
	secretAccessKey := MustGetEnv("S3_SECRET_ACCESS_KEY")
	region := GetEnvOrDefault("S3_REGION", "us-east-1")

	sugar := logger.Sugar()
	sugar.Info("Initializing cloud storage service")

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	s3Options := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = true
		},
	}

	if endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
		sugar.Info("Using custom storage endpoint configuration")
	} else {
		sugar.Info("Using default cloud storage configuration")
	}

	S3Client = s3.NewFromConfig(cfg, s3Options...)

	buckets, err := S3Client.ListBuckets(context.Background(), &s3.ListBucketsInput{})
	if err == nil {
		sugar.Info("Cloud storage service initialized successfully", "bucket_count", len(buckets.Buckets))
	}
	return err
}

// CaptureBucket returns the bucket that holds uploaded capture payloads.
func CaptureBucket() string {
	return GetEnvOrDefault("CAPTURE_BUCKET", "pcap-captures")
}

// UploadCapture stores raw capture bytes under the given key.
func UploadCapture(ctx context.Context, key string, data []byte) error {
	if S3Client == nil {
		return errors.New("s3 client is nil; call InitS3 first")
	}
	_, err := S3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(CaptureBucket()),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object failed: %w", err)
	}
	return nil
}

// DownloadCapture fetches capture bytes previously stored by UploadCapture.
// Transient storage errors are retried with a fixed delay.
func DownloadCapture(ctx context.Context, key string) ([]byte, error) {
	if S3Client == nil {
		return nil, errors.New("s3 client is nil; call InitS3 first")
	}

	maxAttempts := getRetryMaxAttempts()
	retryDelay := getRetryDelaySeconds()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := S3Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(CaptureBucket()),
			Key:    aws.String(key),
		})
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				time.Sleep(time.Duration(retryDelay) * time.Second)
			}
			continue
		}
		defer result.Body.Close()

		data, err := io.ReadAll(result.Body)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				time.Sleep(time.Duration(retryDelay) * time.Second)
			}
			continue
		}

		return data, nil
	}

	return nil, fmt.Errorf("failed to download object after %d attempts: %w", maxAttempts, lastErr)
}

func getRetryMaxAttempts() int {
	return IntEnvOrDefault("S3_RETRY_MAX_ATTEMPTS", 3, 1)
}

func getRetryDelaySeconds() int {
	return IntEnvOrDefault("S3_RETRY_DELAY_SECONDS", 5, 0)
}

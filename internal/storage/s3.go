package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

type S3Settings struct {
	Region        string
	Bucket        string
	Endpoint      string // MinIO or other S3-compatible endpoint; empty for AWS
	PublicBaseURL string // CDN or bucket URL prefix for returned links

	// Static keys, mainly for MinIO. Empty means the default AWS chain.
	AccessKeyID     string
	SecretAccessKey string
}

// S3ImageHost stores resized images in a bucket under folder/<uuid>.<ext>.
type S3ImageHost struct {
	client   *s3.Client
	uploader *manager.Uploader
	settings S3Settings
}

func NewS3ImageHost(ctx context.Context, settings S3Settings) (*S3ImageHost, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(settings.Region)}
	if settings.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3ImageHost{
		client:   client,
		uploader: manager.NewUploader(client),
		settings: settings,
	}, nil
}

func (h *S3ImageHost) Upload(ctx context.Context, localPath string, opts UploadOptions) (*UploadResult, error) {
	img, err := prepareImage(localPath, opts)
	if err != nil {
		return nil, err
	}

	key := path.Join(opts.Folder, uuid.NewString()+"."+img.format)
	_, err = h.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.settings.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.data),
		ContentType: aws.String(img.contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload: %w", err)
	}

	secure := h.objectURL(key)
	return &UploadResult{
		URL:       strings.Replace(secure, "https://", "http://", 1),
		PublicID:  key,
		SecureURL: secure,
		Width:     img.width,
		Height:    img.height,
		Format:    img.format,
	}, nil
}

// Delete removes the object. A missing object yields ErrNotFound.
func (h *S3ImageHost) Delete(ctx context.Context, publicID string) error {
	_, err := h.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.settings.Bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		var notFound *types.NotFound
		var noKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noKey) {
			return ErrNotFound
		}
		return fmt.Errorf("s3 head: %w", err)
	}

	_, err = h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.settings.Bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}

func (h *S3ImageHost) objectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	switch {
	case h.settings.PublicBaseURL != "":
		return strings.TrimRight(h.settings.PublicBaseURL, "/") + "/" + escaped
	case h.settings.Endpoint != "":
		return strings.TrimRight(h.settings.Endpoint, "/") + "/" + h.settings.Bucket + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.settings.Bucket, h.settings.Region, escaped)
	}
}

// Package media stores the photos users send to the coach.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"nutricoach/internal/coach"
	"nutricoach/internal/config"
)

// Store persists an image and returns the reference saved with the chat turn.
type Store interface {
	Save(ctx context.Context, userID, name string, img *coach.Image) (string, error)
}

// New returns an S3Store when a bucket is configured, otherwise an InlineStore.
func New(ctx context.Context, cfg config.Config) (Store, error) {
	if cfg.S3Bucket == "" {
		log.Info().Msg("S3_BUCKET not set, chat images are stored inline")
		return InlineStore{}, nil
	}
	return NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicURL)
}

// InlineStore keeps the image as a data URL in the database row.
type InlineStore struct{}

func (InlineStore) Save(_ context.Context, _, _ string, img *coach.Image) (string, error) {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}

// PutObjectAPI is the slice of the S3 client the store needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client    PutObjectAPI
	bucket    string
	publicURL string
}

func NewS3Store(ctx context.Context, bucket, region, publicURL string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config for S3: %w", err)
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return newS3Store(s3.NewFromConfig(cfg), bucket, publicURL), nil
}

func newS3Store(client PutObjectAPI, bucket, publicURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// Key is chat-images/<user>/<name>.<ext>.
func Key(userID, name string, img *coach.Image) string {
	return fmt.Sprintf("chat-images/%s/%s.%s", userID, name, img.Extension())
}

func (s *S3Store) Save(ctx context.Context, userID, name string, img *coach.Image) (string, error) {
	key := Key(userID, name, img)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.MIMEType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

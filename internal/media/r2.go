// Package media issues presigned avatar uploads against a Cloudflare R2
// (S3-compatible) bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/influencerconnect/chat-server/internal/config"
)

const uploadExpiry = 15 * time.Minute

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrInvalidKey      = errors.New("object key does not belong to user")
	ErrObjectMissing   = errors.New("uploaded object not found")
)

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type AvatarUpload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AvatarStore struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	publicBase string
}

// NewAvatarStore builds a client for the account's R2 endpoint.
func NewAvatarStore(cfg config.R2Config) (*AvatarStore, error) {
	return newAvatarStore(cfg, fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
}

func newAvatarStore(cfg config.R2Config, endpoint string) (*AvatarStore, error) {
	if !cfg.Enabled() {
		return nil, errors.New("r2 is not configured")
	}

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	publicBase := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = strings.TrimSuffix(endpoint, "/") + "/" + cfg.BucketName
	}

	log.Println("Successfully initialized R2 client")
	return &AvatarStore{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.BucketName,
		publicBase: publicBase,
	}, nil
}

func userPrefix(userID string) string {
	return "avatars/" + userID + "/"
}

// PublicURL is where a stored object can be fetched once uploaded.
func (s *AvatarStore) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// PresignUpload returns a short-lived PUT URL for a new avatar of userID.
func (s *AvatarStore) PresignUpload(ctx context.Context, userID, contentType string) (*AvatarUpload, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	key := userPrefix(userID) + uuid.NewString() + "." + ext

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign avatar upload: %w", err)
	}

	return &AvatarUpload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: s.PublicURL(key),
		ExpiresAt: time.Now().UTC().Add(uploadExpiry),
	}, nil
}

// ConfirmUpload checks that key belongs to userID and has been uploaded, and
// returns its public URL.
func (s *AvatarStore) ConfirmUpload(ctx context.Context, userID, key string) (string, error) {
	if !strings.HasPrefix(key, userPrefix(userID)) || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NotFound
		if errors.As(err, &nsk) {
			return "", ErrObjectMissing
		}
		return "", fmt.Errorf("failed to check avatar object: %w", err)
	}
	return s.PublicURL(key), nil
}

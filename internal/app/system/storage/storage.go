// Package storage hands out presigned S3 URLs for document attachments.
// Clients upload directly to the bucket; the server only records metadata.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotConfigured is returned by a nil or unconfigured Presigner.
var ErrNotConfigured = errors.New("storage: not configured")

const DefaultPresignTTL = 15 * time.Minute

type Config struct {
	Region     string
	Bucket     string
	Prefix     string
	Endpoint   string // optional, for S3-compatible backends such as MinIO
	AccessKey  string // optional; the default credential chain is used when blank
	SecretKey  string
	PresignTTL time.Duration
}

// Enabled reports whether enough is set to build a client.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

// Upload is a presigned PUT for one object.
type Upload struct {
	Key       string    `json:"key"`
	URL       string    `json:"upload_url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

type signedRequest struct {
	URL    string
	Method string
}

// presignAPI is the part of *s3.PresignClient used here.
type presignAPI interface {
	PresignPut(ctx context.Context, in *s3.PutObjectInput, ttl time.Duration) (signedRequest, error)
	PresignGet(ctx context.Context, in *s3.GetObjectInput, ttl time.Duration) (signedRequest, error)
}

type sdkPresigner struct{ c *s3.PresignClient }

func (s sdkPresigner) PresignPut(ctx context.Context, in *s3.PutObjectInput, ttl time.Duration) (signedRequest, error) {
	req, err := s.c.PresignPutObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return signedRequest{}, err
	}
	return signedRequest{URL: req.URL, Method: req.Method}, nil
}

func (s sdkPresigner) PresignGet(ctx context.Context, in *s3.GetObjectInput, ttl time.Duration) (signedRequest, error) {
	req, err := s.c.PresignGetObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return signedRequest{}, err
	}
	return signedRequest{URL: req.URL, Method: req.Method}, nil
}

type Presigner struct {
	bucket string
	prefix string
	ttl    time.Duration
	client presignAPI
	now    func() time.Time
}

// New builds a Presigner. It returns (nil, nil) when cfg is not enabled;
// callers treat a nil Presigner as "storage unavailable".
func New(ctx context.Context, cfg Config) (*Presigner, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newPresigner(cfg, sdkPresigner{s3.NewPresignClient(client)}), nil
}

func newPresigner(cfg Config, client presignAPI) *Presigner {
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &Presigner{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		ttl:    ttl,
		client: client,
		now:    time.Now,
	}
}

// ObjectKey returns a fresh key under prefix/owner/yyyy/mm/.
func (p *Presigner) ObjectKey(owner, fileName string) string {
	d := p.now().UTC()
	name := sanitizeName(fileName)
	return path.Join(p.prefix, owner, fmt.Sprintf("%04d/%02d", d.Year(), d.Month()), uuid.NewString()+"-"+name)
}

// PresignPut issues an upload URL for a new object owned by owner.
func (p *Presigner) PresignPut(ctx context.Context, owner, fileName, contentType string) (Upload, error) {
	if p == nil {
		return Upload{}, ErrNotConfigured
	}
	key := p.ObjectKey(owner, fileName)
	in := &s3.PutObjectInput{Bucket: aws.String(p.bucket), Key: aws.String(key)}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	req, err := p.client.PresignPut(ctx, in, p.ttl)
	if err != nil {
		return Upload{}, fmt.Errorf("presign put: %w", err)
	}
	return Upload{Key: key, URL: req.URL, Method: req.Method, ExpiresAt: p.now().Add(p.ttl).UTC()}, nil
}

// PresignGet issues a download URL for key.
func (p *Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	if p == nil {
		return "", ErrNotConfigured
	}
	req, err := p.client.PresignGet(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, p.ttl)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	return out
}

// Package s3lease implements lease.Provider against S3-compatible object
// storage, using conditional writes instead of a lock service: Acquire is a
// PutObject with If-None-Match: "*" (fails if the object already exists),
// and Renew is a PutObject with If-Match on the ETag that a HeadObject read
// just before it (fails if another instance has overwritten it in between).
package s3lease

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/hostlease/hostlease/pkg/lease"
)

// Config is the construction contract for a Provider.
type Config struct {
	Bucket string
	Region string
	// Endpoint overrides the default AWS endpoint resolution; set for
	// S3-compatible services (MinIO, LocalStack).
	Endpoint string
	// UsePathStyle is required by most non-AWS S3-compatible endpoints.
	UsePathStyle bool
}

// Provider is a lease.Provider backed by a single S3 bucket.
type Provider struct {
	client *s3.Client
	bucket string
}

// body is the object payload written for a held lease. Only leaseID is read
// back (by Renew and Release); expiresAt and accountName are for operator
// visibility. Acquire does not consult expiresAt: any existing object,
// expired or not, makes Acquire fail with ErrConflict.
type body struct {
	LeaseID     string    `json:"leaseId"`
	AccountName string    `json:"accountName"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// New constructs a Provider from an already-resolved aws.Config.
func New(awsCfg aws.Config, cfg Config) *Provider {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})
	return &Provider{client: client, bucket: cfg.Bucket}
}

// Acquire writes def.Name with If-None-Match: "*", succeeding only if no
// object currently exists at that key.
func (p *Provider) Acquire(ctx context.Context, def lease.Definition) (string, error) {
	newID := uuid.NewString()

	payload, err := json.Marshal(body{LeaseID: newID, AccountName: def.AccountName, ExpiresAt: time.Now().Add(def.Period)})
	if err != nil {
		return "", lease.NewError(lease.ErrOther, err)
	}

	key := def.Name
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return "", lease.NewError(lease.ErrConflict, fmt.Errorf("object %s already exists", key))
		}
		return "", classifyError(err)
	}

	return newID, nil
}

// Renew reads def.Name's ETag (HeadObject) and body (GetObject), checks that
// the stored lease id is def.LeaseID, and rewrites the object with a fresh
// expiry using PutObject with If-Match on that ETag. Fails with ErrConflict
// if the object is gone, is held by another lease id, or was overwritten in
// between.
func (p *Provider) Renew(ctx context.Context, def lease.Definition) error {
	key := def.Name

	head, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(p.bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return lease.NewError(lease.ErrConflict, fmt.Errorf("object %s no longer exists", key))
		}
		return classifyError(err)
	}

	current, err := p.readBody(ctx, key)
	if err != nil {
		return err
	}
	if current.LeaseID != def.LeaseID {
		return lease.NewError(lease.ErrConflict, errors.New("object is held by a different lease id"))
	}

	payload, err := json.Marshal(body{LeaseID: def.LeaseID, AccountName: def.AccountName, ExpiresAt: time.Now().Add(def.Period)})
	if err != nil {
		return lease.NewError(lease.ErrOther, err)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:  aws.String(p.bucket),
		Key:     aws.String(key),
		Body:    bytes.NewReader(payload),
		IfMatch: head.ETag,
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return lease.NewError(lease.ErrConflict, errors.New("object was modified concurrently"))
		}
		return classifyError(err)
	}

	return nil
}

// Release deletes def.Name if it is still held by def.LeaseID.
func (p *Provider) Release(ctx context.Context, def lease.Definition) error {
	current, err := p.readBody(ctx, def.Name)
	if err != nil {
		if lease.KindOf(err) == lease.ErrNotFound {
			return nil
		}
		return err
	}
	if current.LeaseID != def.LeaseID {
		return nil
	}

	_, err = p.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(p.bucket), Key: aws.String(def.Name)})
	if err != nil {
		return classifyError(err)
	}
	return nil
}

func (p *Provider) readBody(ctx context.Context, key string) (body, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(p.bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return body{}, lease.NewError(lease.ErrNotFound, err)
		}
		return body{}, classifyError(err)
	}
	defer out.Body.Close()

	var b body
	if err := json.NewDecoder(out.Body).Decode(&b); err != nil {
		return body{}, lease.NewError(lease.ErrOther, err)
	}
	return b, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "PreconditionFailed" || code == "412"
	}
	return false
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return lease.NewError(lease.ErrTransientServer, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "SlowDown", "ServiceUnavailable", "InternalError":
			return lease.NewError(lease.ErrTransientServer, err)
		}
	}
	return lease.NewError(lease.ErrOther, err)
}

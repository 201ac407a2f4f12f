// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package s3back implements corpus blob storage on an S3-compatible object
// store.
package s3back

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/corpus"
)

// Error is the default s3back error class.
var Error = errs.Class("s3back")

// Config holds the S3 binding configuration.
type Config struct {
	Bucket string
	// Endpoint overrides the AWS endpoint, for S3-compatible stores.
	Endpoint string
	Region   string
}

// Blobs implements corpus.Blobs over an S3 bucket.
type Blobs struct {
	client *s3.Client
	bucket string
}

// New creates a blob store bound to the configured bucket, loading
// credentials from the ambient AWS configuration.
func New(ctx context.Context, config Config) (*Blobs, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}

	awscfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	client := s3.NewFromConfig(awscfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, config.Bucket), nil
}

// NewWithClient creates a blob store using an existing S3 client.
func NewWithClient(client *s3.Client, bucket string) *Blobs {
	return &Blobs{client: client, bucket: bucket}
}

// Get implements corpus.Blobs.
func (blobs *Blobs) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := blobs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(blobs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissing(err) {
			return nil, corpus.ErrNotFound.New("blob %q", key)
		}
		return nil, Error.Wrap(err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return data, nil
}

// Put implements corpus.Blobs.
func (blobs *Blobs) Put(ctx context.Context, key string, data []byte) error {
	_, err := blobs.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(blobs.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return Error.Wrap(err)
}

// Delete implements corpus.Blobs.
func (blobs *Blobs) Delete(ctx context.Context, key string) error {
	_, err := blobs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(blobs.bucket),
		Key:    aws.String(key),
	})
	return Error.Wrap(err)
}

// Head implements corpus.Blobs.
func (blobs *Blobs) Head(ctx context.Context, key string) (int64, error) {
	out, err := blobs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(blobs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissing(err) {
			return 0, corpus.ErrNotFound.New("blob %q", key)
		}
		return 0, Error.Wrap(err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// List implements corpus.Blobs.
func (blobs *Blobs) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(blobs.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(blobs.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		for _, object := range page.Contents {
			keys = append(keys, aws.ToString(object.Key))
		}
	}
	return keys, nil
}

func isMissing(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

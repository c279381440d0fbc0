package storage

import (
	"bytes"
	"context"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
)

// S3Store keeps blobs in an S3 bucket
type S3Store struct {
	bucket   string
	uploader s3manageriface.UploaderAPI
	client   s3iface.S3API
}

// S3Options configures NewS3Store. Endpoint is only needed for S3
// compatible services such as MinIO.
type S3Options struct {
	Bucket   string
	Region   string
	Endpoint string
}

// NewS3Store creates an S3Store using the default AWS credential chain
func NewS3Store(opts S3Options) (*S3Store, error) {
	cfg := aws.NewConfig().WithRegion(opts.Region)
	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create aws session")
	}
	client := s3.New(sess)
	log.Printf("[storage] using s3 bucket %s in %s", opts.Bucket, opts.Region)
	return NewS3StoreWithClient(opts.Bucket, s3manager.NewUploaderWithClient(client), client), nil
}

// NewS3StoreWithClient creates an S3Store from existing clients
func NewS3StoreWithClient(bucket string, uploader s3manageriface.UploaderAPI, client s3iface.S3API) *S3Store {
	return &S3Store{bucket: bucket, uploader: uploader, client: client}
}

// Put uploads data to key and returns the object's location
func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s", key)
	}
	return out.Location, nil
}

// Delete removes key from the bucket
func (s *S3Store) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "failed to delete %s", key)
}

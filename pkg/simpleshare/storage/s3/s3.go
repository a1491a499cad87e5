package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tendant/simple-share/pkg/simpleshare"
)

const backendName = "s3"

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	Prefix          string // Optional key prefix, e.g. "share/"
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // Create bucket if it doesn't exist
}

// Backend is an S3-compatible implementation of the simpleshare.BlobStore
// interface. Keys are stored flat below Config.Prefix.
type Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	config   Config
}

// New creates a new S3-compatible storage backend
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)

	backend := &Backend{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   config.Bucket,
		prefix:   normalizePrefix(config.Prefix),
		config:   config,
	}

	if config.CreateBucketIfNotExist {
		if err := backend.createBucketIfNotExists(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return backend, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func (b *Backend) createBucketIfNotExists(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err == nil {
		return nil
	}

	// MinIO reports a missing bucket in several ways
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) &&
		!strings.Contains(err.Error(), "BadRequest") &&
		!strings.Contains(err.Error(), "NoSuchBucket") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(b.bucket),
	}
	if b.config.Region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}

	if _, err := b.client.CreateBucket(ctx, createInput); err != nil {
		if isAPIError(err, "BucketAlreadyExists", "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (b *Backend) objectKey(op, key string) (string, error) {
	if err := simpleshare.ValidateBlobName(key); err != nil {
		return "", b.fail(op, key, err)
	}
	return b.prefix + key, nil
}

func (b *Backend) fail(op, key string, err error) error {
	return &simpleshare.StorageError{Backend: backendName, Key: key, Op: op, Err: err}
}

// isNotFound recognizes the missing-key errors of HeadObject and GetObject.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey) || isAPIError(err, "NotFound", "NoSuchKey")
}

func isAPIError(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}

func (b *Backend) head(ctx context.Context, op, key string) (*simpleshare.ObjectMeta, error) {
	objectKey, err := b.objectKey(op, key)
	if err != nil {
		return nil, err
	}

	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, b.fail(op, key, simpleshare.ErrObjectNotFound)
		}
		return nil, b.fail(op, key, fmt.Errorf("failed to get object metadata: %w", err))
	}

	meta := &simpleshare.ObjectMeta{
		Key:         key,
		Size:        aws.ToInt64(result.ContentLength),
		ContentType: aws.ToString(result.ContentType),
		UpdatedAt:   aws.ToTime(result.LastModified),
	}
	if meta.ContentType == "" {
		meta.ContentType = "application/octet-stream"
	}
	return meta, nil
}

// Stat retrieves metadata for an object in S3
func (b *Backend) Stat(ctx context.Context, key string) (*simpleshare.ObjectMeta, error) {
	return b.head(ctx, "stat", key)
}

// Open streams an object from S3. The body is not seekable.
func (b *Backend) Open(ctx context.Context, key string) (*simpleshare.Object, error) {
	objectKey, err := b.objectKey("open", key)
	if err != nil {
		return nil, err
	}

	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, b.fail("open", key, simpleshare.ErrObjectNotFound)
		}
		return nil, b.fail("open", key, fmt.Errorf("failed to download from S3: %w", err))
	}

	return &simpleshare.Object{
		Body: result.Body,
		Meta: simpleshare.ObjectMeta{
			Key:         key,
			Size:        aws.ToInt64(result.ContentLength),
			ContentType: aws.ToString(result.ContentType),
			UpdatedAt:   aws.ToTime(result.LastModified),
		},
	}, nil
}

// Create uploads a new object. The conditional write makes S3 reject the
// upload when the key already exists.
func (b *Backend) Create(ctx context.Context, key string, reader io.Reader) (int64, error) {
	objectKey, err := b.objectKey("create", key)
	if err != nil {
		return 0, err
	}

	if _, err := b.head(ctx, "create", key); err == nil {
		return 0, b.fail("create", key, simpleshare.ErrObjectExists)
	} else if !errors.Is(err, simpleshare.ErrObjectNotFound) {
		return 0, err
	}

	counter := &countingReader{r: reader}
	_, err = b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(objectKey),
		Body:        counter,
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isAPIError(err, "PreconditionFailed", "ConditionalRequestConflict") {
			return 0, b.fail("create", key, simpleshare.ErrObjectExists)
		}
		return 0, b.fail("create", key, fmt.Errorf("failed to upload to S3: %w", err))
	}
	return counter.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Put creates or replaces a small object in a single request
func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	objectKey, err := b.objectKey("put", key)
	if err != nil {
		return err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return b.fail("put", key, fmt.Errorf("failed to upload to S3: %w", err))
	}
	return nil
}

// Rename copies from to to and deletes the source. S3 has no native rename.
func (b *Backend) Rename(ctx context.Context, from, to string) error {
	src, err := b.objectKey("rename", from)
	if err != nil {
		return err
	}
	dst, err := b.objectKey("rename", to)
	if err != nil {
		return err
	}

	if _, err := b.head(ctx, "rename", to); err == nil {
		return b.fail("rename", to, simpleshare.ErrObjectExists)
	} else if !errors.Is(err, simpleshare.ErrObjectNotFound) {
		return err
	}

	_, err = b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(dst),
		CopySource: aws.String(b.bucket + "/" + url.PathEscape(src)),
	})
	if err != nil {
		if isNotFound(err) {
			return b.fail("rename", from, simpleshare.ErrObjectNotFound)
		}
		return b.fail("rename", from, fmt.Errorf("failed to copy object: %w", err))
	}

	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(src),
	}); err != nil {
		return b.fail("rename", from, fmt.Errorf("failed to delete source after copy: %w", err))
	}
	return nil
}

// Delete deletes an object. S3 deletes are idempotent, so existence is
// checked first to report missing keys.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.head(ctx, "delete", key); err != nil {
		return err
	}

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + key),
	})
	if err != nil {
		return b.fail("delete", key, fmt.Errorf("failed to delete from S3: %w", err))
	}
	return nil
}

// List returns every key directly below the prefix
func (b *Backend) List(ctx context.Context) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, b.fail("list", b.prefix, fmt.Errorf("failed to list objects: %w", err))
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			if key == "" || strings.Contains(key, "/") {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

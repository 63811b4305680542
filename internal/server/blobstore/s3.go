package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jensmemes/memeserver/internal/common"
)

// ContentIDPrefix marks S3 content ids, which are the sha256 of the bytes.
const ContentIDPrefix = "sha256-"

const (
	pinTagKey   = "pinned"
	pinTagValue = "true"
)

// s3API is the part of *s3.Client used by S3Store.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	PutObjectTagging(ctx context.Context, in *s3.PutObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.PutObjectTaggingOutput, error)
}

// S3Options points an S3Store at an S3-compatible endpoint.
type S3Options struct {
	User     string
	Password string
	Bucket   string
	Region   string
	Endpoint string
}

// S3Store keeps blobs in a bucket keyed by their sha256. Unpinned objects
// are expected to be expired by a bucket lifecycle rule that skips objects
// tagged pinned=true.
type S3Store struct {
	client s3API
	bucket string
}

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, endpoint string) s3API {
		return s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
)

func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.User, opts.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return &S3Store{client: newS3ClientFromConfig(cfg, opts.Endpoint), bucket: opts.Bucket}, nil
}

func (s *S3Store) Fetch(ctx context.Context, contentID string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(contentID),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3 get %s: %w", contentID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w", contentID, err)
	}
	if out.ContentLength == nil {
		_ = out.Body.Close()
		return nil, fmt.Errorf("s3 get %s: %w", contentID, common.ErrMissingContentLength)
	}
	return &Object{Body: out.Body, Size: *out.ContentLength}, nil
}

// Add spools r to a temporary file while hashing it, since the key is only
// known once every byte has been seen.
func (s *S3Store) Add(ctx context.Context, name string, r io.Reader) (*AddedFile, error) {
	f, err := os.CreateTemp("", "meme-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		return nil, fmt.Errorf("s3 add %s: %w", name, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := ContentIDPrefix + hex.EncodeToString(h.Sum(nil))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", name, err)
	}

	return &AddedFile{ContentID: key, Name: name, Size: size}, nil
}

func (s *S3Store) Pin(ctx context.Context, contentID string) error {
	_, err := s.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(contentID),
		Tagging: &types.Tagging{TagSet: []types.Tag{
			{Key: aws.String(pinTagKey), Value: aws.String(pinTagValue)},
		}},
	})
	if err != nil {
		return fmt.Errorf("s3 pin %s: %w", contentID, err)
	}
	return nil
}

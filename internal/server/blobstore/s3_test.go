package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jensmemes/memeserver/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	tags    map[string]string
	noLen   bool
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, tags: map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(b)))}
	if !f.noLen {
		out.ContentLength = aws.Int64(int64(len(b)))
	}
	return out, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if in.ContentLength == nil || *in.ContentLength != int64(len(b)) {
		return nil, errors.New("content length mismatch")
	}
	f.objects[*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) PutObjectTagging(_ context.Context, in *s3.PutObjectTaggingInput, _ ...func(*s3.Options)) (*s3.PutObjectTaggingOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, tag := range in.Tagging.TagSet {
		f.tags[*in.Key+"/"+*tag.Key] = *tag.Value
	}
	return &s3.PutObjectTaggingOutput{}, nil
}

func TestS3Store_AddFetchPin(t *testing.T) {
	fake := newFakeS3()
	s := &S3Store{client: fake, bucket: "memes"}
	ctx := context.Background()

	added, err := s.Add(ctx, "cat.png", strings.NewReader("meow"))
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("meow"))
	wantID := ContentIDPrefix + hex.EncodeToString(sum[:])
	assert.Equal(t, &AddedFile{ContentID: wantID, Name: "cat.png", Size: 4}, added)

	obj, err := s.Fetch(ctx, wantID)
	require.NoError(t, err)
	b, _ := io.ReadAll(obj.Body)
	_ = obj.Body.Close()
	assert.Equal(t, "meow", string(b))
	assert.EqualValues(t, 4, obj.Size)

	require.NoError(t, s.Pin(ctx, wantID))
	assert.Equal(t, "true", fake.tags[wantID+"/pinned"])
}

func TestS3Store_SameBytesSameID(t *testing.T) {
	s := &S3Store{client: newFakeS3(), bucket: "memes"}

	a, err := s.Add(context.Background(), "a.png", strings.NewReader("same"))
	require.NoError(t, err)
	b, err := s.Add(context.Background(), "b.png", strings.NewReader("same"))
	require.NoError(t, err)
	assert.Equal(t, a.ContentID, b.ContentID)
}

func TestS3Store_FetchErrors(t *testing.T) {
	fake := newFakeS3()
	s := &S3Store{client: fake, bucket: "memes"}

	_, err := s.Fetch(context.Background(), "sha256-missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	fake.objects["k"] = []byte("x")
	fake.noLen = true
	_, err = s.Fetch(context.Background(), "k")
	assert.ErrorIs(t, err, common.ErrMissingContentLength)

	fake.err = errors.New("s3 down")
	_, err = s.Fetch(context.Background(), "k")
	assert.ErrorContains(t, err, "s3 down")
	assert.Error(t, s.Pin(context.Background(), "k"))
	_, err = s.Add(context.Background(), "k", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestNewS3Store_UsesSeams(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	fake := newFakeS3()
	var gotEndpoint string
	newS3ClientFromConfig = func(cfg aws.Config, endpoint string) s3API {
		gotEndpoint = endpoint
		return fake
	}

	s, err := NewS3Store(context.Background(), S3Options{
		User: "admin", Password: "pw", Bucket: "memes", Region: "us-east-1", Endpoint: "http://minio:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "memes", s.bucket)
	assert.Same(t, fake, s.client.(*fakeS3))
	assert.Equal(t, "http://minio:9000", gotEndpoint)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3Store(context.Background(), S3Options{})
	assert.Error(t, err)
}

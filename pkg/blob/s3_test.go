package blob_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/identikit/pkg/blob"
)

type fakeS3 struct {
	putInput *s3.PutObjectInput
	err      error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Storage_Store(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{}
	store := blob.NewS3StorageWithClient(fake, "avatars", "https://cdn.example.com/")

	url, err := store.Store(context.Background(), []byte{0xFF, 0xD8}, "users/u-1/avatar.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/users/u-1/avatar.jpg", url)

	require.NotNil(t, fake.putInput)
	assert.Equal(t, "avatars", *fake.putInput.Bucket)
	assert.Equal(t, "users/u-1/avatar.jpg", *fake.putInput.Key)
	assert.Equal(t, "image/jpeg", *fake.putInput.ContentType)
}

func TestS3Storage_StoreDefaultsContentType(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{}
	store := blob.NewS3StorageWithClient(fake, "avatars", "https://cdn.example.com")

	_, err := store.Store(context.Background(), []byte("x"), "k", "")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", *fake.putInput.ContentType)
}

func TestS3Storage_StoreFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{err: assert.AnError}
	store := blob.NewS3StorageWithClient(fake, "avatars", "")

	_, err := store.Store(context.Background(), []byte("x"), "k", "image/png")
	assert.ErrorIs(t, err, blob.ErrStoreFailed)
}

func TestNewS3Storage_RequiresBucketAndRegion(t *testing.T) {
	t.Parallel()

	_, err := blob.NewS3Storage(context.Background(), blob.S3Config{})
	assert.ErrorIs(t, err, blob.ErrInvalidConfig)
}

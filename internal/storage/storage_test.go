package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "client-1/images/file-1.png", Key("client-1", "image", "file-1", ".png"))
	assert.Equal(t, "client-1/files/file-2", Key("client-1", "file", "file-2", ""))
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := NewLocalStorage(fs)

	key := Key("c1", "image", "f1", ".txt")
	require.NoError(t, s.Put(ctx, key, strings.NewReader("hello"), 5, "text/plain"))

	exists, err := afero.Exists(fs, key+".part")
	require.NoError(t, err)
	assert.False(t, exists, "temporary file must be renamed away")

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, key), ErrNotFound)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestLocalStorage_PutFailureLeavesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewLocalStorage(fs)

	err := s.Put(context.Background(), "c1/files/f1", failingReader{}, 10, "")
	require.Error(t, err)

	for _, name := range []string{"c1/files/f1", "c1/files/f1.part"} {
		exists, err := afero.Exists(fs, name)
		require.NoError(t, err)
		assert.False(t, exists, name)
	}
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func TestS3Storage(t *testing.T) {
	ctx := context.Background()
	client := new(mockS3)
	s := NewS3StorageWithClient(client, "bucket")

	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "bucket" && *in.Key == "k" && *in.ContentType == "image/png" && *in.ContentLength == 3
	})).Return(&s3.PutObjectOutput{}, nil)
	require.NoError(t, s.Put(ctx, "k", bytes.NewReader([]byte("png")), 3, "image/png"))

	client.On("GetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool { return *in.Key == "k" })).
		Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("png"))}, nil)
	rc, err := s.Open(ctx, "k")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "png", string(data))

	client.On("GetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool { return *in.Key == "missing" })).
		Return(nil, &types.NoSuchKey{})
	_, err = s.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	client.On("DeleteObject", ctx, mock.Anything).Return(&s3.DeleteObjectOutput{}, nil)
	require.NoError(t, s.Delete(ctx, "k"))

	client.AssertExpectations(t)
}

type mockMinio struct {
	mock.Mock
}

func (m *mockMinio) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(bucketName, objectName, objectSize, opts.ContentType)
	return minio.UploadInfo{}, args.Error(0)
}

func (m *mockMinio) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(bucketName, objectName)
	return nil, args.Error(0)
}

func (m *mockMinio) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(bucketName, objectName)
	return minio.ObjectInfo{}, args.Error(0)
}

func (m *mockMinio) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	args := m.Called(bucketName, objectName)
	return args.Error(0)
}

func TestMinioStorage(t *testing.T) {
	ctx := context.Background()
	client := new(mockMinio)
	s := &MinioStorage{client: client, bucket: "app"}

	client.On("PutObject", "app", "k", int64(4), "text/plain").Return(nil)
	require.NoError(t, s.Put(ctx, "k", strings.NewReader("data"), 4, "text/plain"))

	client.On("StatObject", "app", "missing").Return(minio.ErrorResponse{Code: "NoSuchKey"})
	_, err := s.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	client.On("RemoveObject", "app", "k").Return(errors.New("unreachable"))
	assert.Error(t, s.Delete(ctx, "k"))

	client.AssertExpectations(t)
}

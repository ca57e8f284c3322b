package fsxs3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/Abraxas-365/docqueue/pkg/fsx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in a map keyed by bucket/key.
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	failPut      error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func objectID(bucket, key *string) string { return aws.ToString(bucket) + "/" + aws.ToString(key) }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectID(in.Bucket, in.Key)] = data
	f.contentTypes[objectID(in.Bucket, in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[objectID(in.Bucket, in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := objectID(in.Bucket, in.Key)
	data, ok := f.objects[id]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(f.contentTypes[id]),
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectID(in.Bucket, in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3RoundTripUnderPrefix(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	fs := NewS3FileSystem(client, "docs", "/tenant/")

	require.NoError(t, fs.WriteFile(ctx, "uploads/a.pdf", []byte("%PDF")))
	assert.Contains(t, client.objects, "docs/tenant/uploads/a.pdf")

	data, err := fs.ReadFile(ctx, "uploads/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))

	info, err := fs.Stat(ctx, "uploads/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)
	assert.Equal(t, "a.pdf", info.Name)

	require.NoError(t, fs.DeleteFile(ctx, "uploads/a.pdf"))
	ok, err := fs.Exists(ctx, "uploads/a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3MissingObjectIsNotFound(t *testing.T) {
	fs := NewS3FileSystem(newFakeS3(), "docs", "")

	_, err := fs.ReadFile(context.Background(), "missing.pdf")
	assert.True(t, fsx.IsNotFound(err))
}

func TestS3WriteFailureIsStorageError(t *testing.T) {
	client := newFakeS3()
	client.failPut = errors.New("AccessDenied")
	fs := NewS3FileSystem(client, "docs", "")

	err := fs.WriteFile(context.Background(), "a.pdf", []byte("x"))
	assert.True(t, errx.IsCode(err, fsx.ErrStorage))
}

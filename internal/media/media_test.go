package media

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutricoach/internal/coach"
	"nutricoach/internal/config"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

var testImage = &coach.Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

func TestS3StoreSave(t *testing.T) {
	fake := &fakeS3{}
	store := newS3Store(fake, "coach-bucket", "https://cdn.example.com/")

	url, err := store.Save(context.Background(), "u1", "req-1", testImage)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/chat-images/u1/req-1.jpg", url)

	assert.Equal(t, "coach-bucket", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "chat-images/u1/req-1.jpg", aws.ToString(fake.input.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(fake.input.ContentType))
	assert.Equal(t, testImage.Data, fake.body)
}

func TestS3StoreSaveError(t *testing.T) {
	store := newS3Store(&fakeS3{err: errors.New("denied")}, "b", "https://x")
	_, err := store.Save(context.Background(), "u1", "req-1", testImage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestInlineStore(t *testing.T) {
	url, err := InlineStore{}.Save(context.Background(), "u1", "req-1", testImage)
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,/9j/", url)

	img, err := coach.ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, testImage.Data, img.Data)
}

func TestNewWithoutBucketIsInline(t *testing.T) {
	s, err := New(context.Background(), config.Default())
	require.NoError(t, err)
	assert.IsType(t, InlineStore{}, s)
}

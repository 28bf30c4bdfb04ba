package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	fails  int
	calls  int
	key    string
	bucket string
	body   []byte
	ctype  string
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.calls <= f.fails {
		return nil, errors.New("503 slow down")
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.key = *params.Key
	f.bucket = *params.Bucket
	f.ctype = *params.ContentType
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": "1"}`), 0o644))

	fake := &fakePutter{fails: 1}
	p := NewPublisher(NewPublisherParams{Client: fake, Bucket: "stats", Prefix: "runs/1"})

	require.NoError(t, p.Publish(context.Background(), "dataset-a", path))
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, "stats", fake.bucket)
	assert.Equal(t, "runs/1/dataset-a/metadata.json", fake.key)
	assert.Equal(t, "application/json", fake.ctype)
	assert.Equal(t, `{"id": "1"}`, string(fake.body))
}

func TestPublishGivesUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	fake := &fakePutter{fails: 10}
	p := NewPublisher(NewPublisherParams{Client: fake, Bucket: "stats"})

	err := p.Publish(context.Background(), "d", path)
	assert.ErrorContains(t, err, "slow down")
	assert.Equal(t, publishTries, fake.calls)
}

func TestPublishMissingFile(t *testing.T) {
	p := NewPublisher(NewPublisherParams{Client: &fakePutter{}, Bucket: "stats"})
	err := p.Publish(context.Background(), "d", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestKeyWithoutPrefix(t *testing.T) {
	p := NewPublisher(NewPublisherParams{Bucket: "stats"})
	assert.Equal(t, "d/metadata.json", p.Key("d", "/data/d/metadata.json"))
}

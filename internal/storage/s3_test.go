package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type memoryBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestResultStoreRoundTrip(t *testing.T) {
	bucket := &memoryBucket{objects: map[string][]byte{}}
	store := NewResultStore(bucket, "results", "analyses")

	key, err := store.Put(context.Background(), "abc", map[string]int{"nodes": 3})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if key != "analyses/abc.json" {
		t.Fatalf("Put() key = %q", key)
	}
	if _, ok := bucket.objects["results/analyses/abc.json"]; !ok {
		t.Fatalf("object not stored, have %v", bucket.objects)
	}

	var got map[string]int
	if err := store.Get(context.Background(), "abc", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["nodes"] != 3 {
		t.Fatalf("Get() = %v", got)
	}

	if err := store.Get(context.Background(), "missing", &got); err == nil {
		t.Fatal("Get() on missing key should fail")
	}
}

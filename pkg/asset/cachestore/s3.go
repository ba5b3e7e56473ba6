//go:build s3

// S3Store persists the cache manifest in a single object in S3 instead of
// on local disk, for servers that don't keep local state between
// restarts. Excluded from regular builds (requires the AWS SDK) via a
// build tag.
//
// go get github.com/aws/aws-sdk-go-v2
// go get github.com/aws/aws-sdk-go-v2/service/s3

package cachestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store stores the cache manifest as a single JSON object in S3.
type S3Store struct {
	client *s3.Client
	bucket string
	key    string

	mu      sync.RWMutex
	entries map[string]diskEntry
}

// NewS3Store loads the manifest object at bucket/key if it exists, or
// starts empty if it doesn't.
func NewS3Store(client *s3.Client, bucket, key string) (*S3Store, error) {
	s := &S3Store{client: client, bucket: bucket, key: key, entries: make(map[string]diskEntry)}

	result, err := client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return s, nil
		}
		return nil, err
	}
	defer result.Body.Close()

	if err := json.NewDecoder(result.Body).Decode(&s.entries); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3Store) Lookup(sha256 string) (url, mime string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sha256]
	return e.URL, e.MIME, ok
}

func (s *S3Store) Put(sha256, url, mime string) error {
	s.mu.Lock()
	s.entries[sha256] = diskEntry{URL: url, MIME: mime}
	snapshot := make(map[string]diskEntry, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	s.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

func (s *S3Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for sha, e := range s.entries {
		out = append(out, Entry{SHA256: sha, URL: e.URL, MIME: e.MIME})
	}
	return out
}

var _ Store = (*S3Store)(nil)

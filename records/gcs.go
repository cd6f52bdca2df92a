/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package records

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore writes records as objects in a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore opens a client for bucket. Object names are prefixed with
// prefix when it is not empty.
func NewGCSStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// Object returns the object name for r.
func (s *GCSStore) Object(r Record) string {
	return path.Join(s.prefix, r.Key())
}

// Put implements Store.
func (s *GCSStore) Put(ctx context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	name := s.Object(r)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = r.contentType()
	if _, err := w.Write(r.Body); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing gs://%s/%s: %w", s.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing gs://%s/%s: %w", s.bucket, name, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

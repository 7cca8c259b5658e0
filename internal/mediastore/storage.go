// Package mediastore wraps MinIO/S3 interactions for raw audio and lecture
// notes.
package mediastore

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/studyai/studyai/internal/config"
)

// Store wraps the S3 client plus the two buckets the service uses.
type Store struct {
	client      *minio.Client
	audioBucket string
	notesBucket string
	region      string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Store{
		client:      client,
		audioBucket: cfg.AudioBucket,
		notesBucket: cfg.NotesBucket,
		region:      cfg.S3Region,
	}, nil
}

// EnsureBuckets makes sure the audio/notes buckets exist before use.
func (s *Store) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.audioBucket, s.notesBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// CheckBuckets verifies both buckets exist without creating them. Used by
// the self-test probes.
func (s *Store) CheckBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.audioBucket, s.notesBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
	}
	return nil
}

// UploadAudio uploads raw audio under a per-user key and returns the key.
func (s *Store) UploadAudio(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error) {
	key := ObjectKey(userID, filename)
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.audioBucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("upload audio object: %w", err)
	}
	return key, nil
}

// UploadNotes uploads a lecture-notes document under a per-user key.
func (s *Store) UploadNotes(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error) {
	key := ObjectKey(userID, filename)
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.notesBucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("upload notes object: %w", err)
	}
	return key, nil
}

// DownloadAudio fetches the raw audio bytes back for the worker.
func (s *Store) DownloadAudio(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.audioBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get audio object: %w", err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read audio object: %w", err)
	}
	return buf, nil
}

// Delete removes an uploaded audio object. Used by the pipeline's error
// compensation so failed runs don't leave orphaned blobs.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.audioBucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove audio object: %w", err)
	}
	return nil
}

// DeleteNotes removes an uploaded notes document. Notes live in their own
// bucket, so audio-bucket deletion would silently miss them.
func (s *Store) DeleteNotes(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.notesBucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove notes object: %w", err)
	}
	return nil
}

// PresignAudioURL returns a signed GET URL for audio playback.
func (s *Store) PresignAudioURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.audioBucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign audio object: %w", err)
	}
	return u.String(), nil
}

// ObjectKey derives the storage key {userID}/{unix-ms}-{rand}.{ext} from the
// original filename.
func ObjectKey(userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%d-%s%s", userID, time.Now().UnixMilli(), randomSuffix(6), ext)
}

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", n)
	}
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf)
}

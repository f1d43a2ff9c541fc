// Package attachments holds uploaded letter attachments for a limited time.
// Attachments are ephemeral: letters only carry an opaque /uploads/<id>
// reference and the bytes expire with the configured TTL.
package attachments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound = errors.New("attachment not found or expired")
	ErrTooLarge = errors.New("attachment exceeds size limit")
	ErrBadType  = errors.New("attachment type not allowed")
)

// allowedExts mirrors the submission form's accept list.
var allowedExts = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Meta describes a stored attachment.
type Meta struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// URL returns the reference stored on letters.
func (m Meta) URL() string {
	return "/uploads/" + m.ID
}

// Store is the abstraction over attachment backends.
type Store interface {
	Put(ctx context.Context, filename string, data []byte) (Meta, error)
	Get(ctx context.Context, id string) ([]byte, Meta, error)
}

// Validate checks filename extension and size against the configured limit.
func Validate(filename string, size, maxBytes int) (contentType string, err error) {
	ext := strings.ToLower(path.Ext(filename))
	ct, ok := allowedExts[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrBadType, ext)
	}
	if size > maxBytes {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, size, maxBytes)
	}
	return ct, nil
}

type entry struct {
	Meta Meta   `json:"meta"`
	Data []byte `json:"data"`
}

// RedisStore keeps attachments in redis with a TTL.
type RedisStore struct {
	client   *redis.Client
	ttl      time.Duration
	maxBytes int
}

// NewRedisStore builds a redis-backed attachment store.
func NewRedisStore(client *redis.Client, ttl time.Duration, maxBytes int) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, maxBytes: maxBytes}
}

// Put validates and stores the attachment, returning its metadata.
func (s *RedisStore) Put(ctx context.Context, filename string, data []byte) (Meta, error) {
	ct, err := Validate(filename, len(data), s.maxBytes)
	if err != nil {
		return Meta{}, err
	}
	meta := Meta{ID: uuid.NewString(), Filename: filename, ContentType: ct, Size: len(data)}
	raw, err := json.Marshal(entry{Meta: meta, Data: data})
	if err != nil {
		return Meta{}, err
	}
	if err := s.client.Set(ctx, key(meta.ID), raw, s.ttl).Err(); err != nil {
		return Meta{}, fmt.Errorf("store attachment: %w", err)
	}
	return meta, nil
}

// Get returns the attachment bytes and metadata.
func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, Meta, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if err == redis.Nil {
		return nil, Meta{}, ErrNotFound
	}
	if err != nil {
		return nil, Meta{}, fmt.Errorf("fetch attachment: %w", err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, Meta{}, fmt.Errorf("decode attachment: %w", err)
	}
	return e.Data, e.Meta, nil
}

func key(id string) string {
	return "excusedesk:attachment:" + id
}

// MemoryStore keeps attachments in process memory, for dev and tests.
// Expired entries are pruned lazily on access.
type MemoryStore struct {
	mu       sync.Mutex
	items    map[string]memEntry
	ttl      time.Duration
	maxBytes int
	now      func() time.Time
}

type memEntry struct {
	entry
	expires time.Time
}

// NewMemoryStore builds an in-memory attachment store.
func NewMemoryStore(ttl time.Duration, maxBytes int) *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]memEntry),
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Put validates and stores the attachment, returning its metadata.
func (s *MemoryStore) Put(ctx context.Context, filename string, data []byte) (Meta, error) {
	ct, err := Validate(filename, len(data), s.maxBytes)
	if err != nil {
		return Meta{}, err
	}
	meta := Meta{ID: uuid.NewString(), Filename: filename, ContentType: ct, Size: len(data)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.items[meta.ID] = memEntry{
		entry:   entry{Meta: meta, Data: data},
		expires: s.now().Add(s.ttl),
	}
	return meta, nil
}

// Get returns the attachment bytes and metadata.
func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok || s.now().After(e.expires) {
		delete(s.items, id)
		return nil, Meta{}, ErrNotFound
	}
	return e.Data, e.Meta, nil
}

// prune must be called with the lock held.
func (s *MemoryStore) prune() {
	now := s.now()
	for id, e := range s.items {
		if now.After(e.expires) {
			delete(s.items, id)
		}
	}
}

// Package redis keeps pipelines as Redis hashes. Each stage is its own hash
// field, so a merge is a single HSET and never rewrites other stages.
package redis

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

const (
	stagePrefix = "stage:"
	keyPrefix   = "pipeline:"
	ownerPrefix = "pipelines:owner:"
)

type Store struct {
	rdb goredis.Cmdable
}

func NewStore(rdb goredis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

// NewClient parses a redis:// URL, falling back to a plain host:port address.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		opt = &goredis.Options{Addr: url}
	}
	rdb := goredis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// hashKey escapes each part so a ':' inside an id cannot shift the
// boundaries between owner, type and resume.
func hashKey(key domain.PipelineKey) string {
	return keyPrefix + url.QueryEscape(key.OwnerID) + ":" + url.QueryEscape(string(key.Type)) + ":" + url.QueryEscape(key.ResumeID)
}

func ownerKey(ownerID string) string {
	return ownerPrefix + ownerID
}

func (s *Store) Ensure(ctx context.Context, seed *domain.Pipeline) (*domain.Pipeline, error) {
	k := hashKey(seed.Key)
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		seedHeader(ctx, pipe, k, seed)
		pipe.HSetNX(ctx, k, "updated_at", formatTime(seed.UpdatedAt))
		pipe.SAdd(ctx, ownerKey(seed.Key.OwnerID), k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ensure pipeline: %w", err)
	}
	return s.load(ctx, seed.Key)
}

func (s *Store) MergeStage(ctx context.Context, seed *domain.Pipeline, stage string, value bool) (*domain.Pipeline, error) {
	k := hashKey(seed.Key)
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		seedHeader(ctx, pipe, k, seed)
		pipe.HSet(ctx, k, stagePrefix+stage, formatBool(value), "updated_at", formatTime(seed.UpdatedAt))
		pipe.SAdd(ctx, ownerKey(seed.Key.OwnerID), k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge pipeline stage: %w", err)
	}
	return s.load(ctx, seed.Key)
}

func (s *Store) Get(ctx context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	return s.load(ctx, key)
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]domain.Pipeline, error) {
	keys, err := s.rdb.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	out := make([]domain.Pipeline, 0, len(keys))
	for _, k := range keys {
		fields, err := s.rdb.HGetAll(ctx, k).Result()
		if err != nil {
			return nil, fmt.Errorf("load pipeline %s: %w", k, err)
		}
		if len(fields) == 0 {
			continue
		}
		p, err := decodePipeline(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) load(ctx context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	fields, err := s.rdb.HGetAll(ctx, hashKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("load pipeline: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "get pipeline", fmt.Errorf("pipeline %s", key))
	}
	return decodePipeline(fields)
}

func seedHeader(ctx context.Context, pipe goredis.Pipeliner, k string, seed *domain.Pipeline) {
	pipe.HSetNX(ctx, k, "id", seed.ID)
	pipe.HSetNX(ctx, k, "owner_id", seed.Key.OwnerID)
	pipe.HSetNX(ctx, k, "pipeline_type", string(seed.Key.Type))
	pipe.HSetNX(ctx, k, "resume_id", seed.Key.ResumeID)
	pipe.HSetNX(ctx, k, "created_at", formatTime(seed.CreatedAt))
}

func decodePipeline(fields map[string]string) (*domain.Pipeline, error) {
	p := &domain.Pipeline{
		ID: fields["id"],
		Key: domain.PipelineKey{
			OwnerID:  fields["owner_id"],
			Type:     domain.PipelineType(fields["pipeline_type"]),
			ResumeID: fields["resume_id"],
		},
	}
	var err error
	if p.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	flags := make(map[string]bool)
	for name, v := range fields {
		if stage, ok := strings.CutPrefix(name, stagePrefix); ok {
			flags[stage] = v == "1"
		}
	}
	p.ApplyStageFlags(flags)
	return p, nil
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

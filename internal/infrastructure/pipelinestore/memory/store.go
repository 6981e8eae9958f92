// Package memory is a single-process PipelineStore. One goroutine owns the
// records, so every merge is applied in full before the next one starts.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

var ErrClosed = errors.New("pipeline store closed")

type op struct {
	apply func(records map[string]*domain.Pipeline)
	done  chan struct{}
}

type Store struct {
	ops     chan op
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewStore() *Store {
	s := &Store{
		ops:     make(chan op),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Store) run() {
	defer close(s.stopped)
	records := make(map[string]*domain.Pipeline)
	for {
		select {
		case o := <-s.ops:
			o.apply(records)
			close(o.done)
		case <-s.stop:
			return
		}
	}
}

// Close stops the owner goroutine. Calls made after Close return ErrClosed.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.stopped
}

func (s *Store) do(ctx context.Context, apply func(records map[string]*domain.Pipeline)) error {
	o := op{apply: apply, done: make(chan struct{})}
	select {
	case s.ops <- o:
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-o.done
	return nil
}

func (s *Store) Ensure(ctx context.Context, seed *domain.Pipeline) (*domain.Pipeline, error) {
	var out *domain.Pipeline
	err := s.do(ctx, func(records map[string]*domain.Pipeline) {
		out = clone(ensure(records, seed))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) MergeStage(ctx context.Context, seed *domain.Pipeline, stage string, value bool) (*domain.Pipeline, error) {
	var out *domain.Pipeline
	err := s.do(ctx, func(records map[string]*domain.Pipeline) {
		p := ensure(records, seed)
		p.ApplyStageFlags(map[string]bool{stage: value})
		if seed.UpdatedAt.After(p.UpdatedAt) {
			p.UpdatedAt = seed.UpdatedAt
		}
		out = clone(p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	var out *domain.Pipeline
	err := s.do(ctx, func(records map[string]*domain.Pipeline) {
		if p, ok := records[key.String()]; ok {
			out = clone(p)
		}
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "get pipeline", fmt.Errorf("pipeline %s", key))
	}
	return out, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]domain.Pipeline, error) {
	out := make([]domain.Pipeline, 0)
	err := s.do(ctx, func(records map[string]*domain.Pipeline) {
		for _, p := range records {
			if p.Key.OwnerID == ownerID {
				out = append(out, *clone(p))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func ensure(records map[string]*domain.Pipeline, seed *domain.Pipeline) *domain.Pipeline {
	k := seed.Key.String()
	if p, ok := records[k]; ok {
		return p
	}
	p := domain.NewPipeline(seed.ID, seed.Key, seed.CreatedAt)
	records[k] = p
	return p
}

func clone(p *domain.Pipeline) *domain.Pipeline {
	out := *p
	out.Stages = make(map[domain.Stage]bool, len(p.Stages))
	for k, v := range p.Stages {
		out.Stages[k] = v
	}
	out.CollaboratorStages = make(map[domain.CollaboratorStage]bool, len(p.CollaboratorStages))
	for k, v := range p.CollaboratorStages {
		out.CollaboratorStages[k] = v
	}
	return &out
}

package service

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/chaos-io/maskswap/config"
	"github.com/chaos-io/maskswap/model"
	"github.com/chaos-io/maskswap/segment"
	"github.com/chaos-io/maskswap/util"
	"go.uber.org/zap"
)

// ErrBusy is returned when no pipeline slot frees up within the queue timeout.
var ErrBusy = errors.New("segmentation queue is full, please retry later")

// Cache stores successful responses by input hash.
type Cache interface {
	Get(ctx context.Context, key string) (*model.SegmentResponse, error)
	Set(ctx context.Context, key string, resp *model.SegmentResponse) error
}

type Result struct {
	Response *model.SegmentResponse
	Outcome  segment.Outcome
	Cached   bool
}

// SegmentService bounds concurrent pipeline runs and caches successful results.
type SegmentService struct {
	pipeline     *segment.Pipeline
	semaphore    chan struct{}
	queueTimeout time.Duration
	cache        Cache
}

// NewSegmentService wraps pipeline. cache may be nil.
func NewSegmentService(pipeline *segment.Pipeline, cfg *config.SegmentConfig, cache Cache) *SegmentService {
	return &SegmentService{
		pipeline:     pipeline,
		semaphore:    make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout: cfg.QueueTimeout,
		cache:        cache,
	}
}

// ProviderName reports which provider variant the pipeline runs with.
func (s *SegmentService) ProviderName() string {
	return s.pipeline.Provider().Name()
}

func (s *SegmentService) cacheKey(md5 string) string {
	return md5 + ":" + s.ProviderName()
}

// Process runs the pipeline for one request identified by md5 of its inputs.
// Pipeline failures are part of the Result; the error is only ErrBusy or a
// response encoding failure.
func (s *SegmentService) Process(ctx context.Context, md5 string, editor segment.EditorValue, replacement image.Image) (*Result, error) {
	if cached := s.lookup(ctx, md5); cached != nil {
		util.Logger.Info("cache hit", zap.String("md5", md5))
		return &Result{Response: cached, Cached: true}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-waitCtx.Done():
		return nil, ErrBusy
	}

	out := s.pipeline.Run(ctx, editor, replacement)

	resp, err := BuildResponse(md5, out)
	if err != nil {
		return nil, err
	}

	if out.OK() && s.cache != nil && md5 != "" {
		if err := s.cache.Set(ctx, s.cacheKey(md5), resp); err != nil {
			util.Logger.Warn("failed to set cache", zap.Error(err))
		}
	}

	return &Result{Response: resp, Outcome: out}, nil
}

// Lookup returns a cached response for md5, or nil.
func (s *SegmentService) Lookup(ctx context.Context, md5 string) (*model.SegmentResponse, error) {
	if s.cache == nil {
		return nil, nil
	}
	return s.cache.Get(ctx, s.cacheKey(md5))
}

func (s *SegmentService) lookup(ctx context.Context, md5 string) *model.SegmentResponse {
	if md5 == "" {
		return nil
	}
	resp, err := s.Lookup(ctx, md5)
	if err != nil {
		util.Logger.Warn("failed to get cache", zap.Error(err))
		return nil
	}
	return resp
}

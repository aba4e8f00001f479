package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// Connect initializes a Redis client from URL or host:port input.
// Supporting both formats keeps local/dev and container config paths simple.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

const (
	latestSummaryKey  = "release:runs:latest"
	summaryHistoryKey = "release:runs:history"
	approvalNoticeKey = "release:approval_notice:"
)

// RedisRunHistoryStore persists the latest run summary and a bounded history
// list for the operator API.
type RedisRunHistoryStore struct {
	client     *redis.Client
	historyLen int64
}

func NewRedisRunHistoryStore(client *redis.Client, historyLen int) *RedisRunHistoryStore {
	if historyLen <= 0 {
		historyLen = 50
	}
	return &RedisRunHistoryStore{client: client, historyLen: int64(historyLen)}
}

func (s *RedisRunHistoryStore) SaveSummary(ctx context.Context, summary domain.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, latestSummaryKey, payload, 0)
	pipe.LPush(ctx, summaryHistoryKey, payload)
	pipe.LTrim(ctx, summaryHistoryKey, 0, s.historyLen-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisRunHistoryStore) LatestSummary(ctx context.Context) (domain.RunSummary, error) {
	raw, err := s.client.Get(ctx, latestSummaryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RunSummary{}, domain.ErrNotFound
		}
		return domain.RunSummary{}, err
	}
	var summary domain.RunSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.RunSummary{}, fmt.Errorf("unmarshal run summary: %w", err)
	}
	return summary, nil
}

// RedisApprovalNoticeStore dedups awaiting-approval notifications per earning
// within a TTL window.
type RedisApprovalNoticeStore struct {
	client *redis.Client
}

func NewRedisApprovalNoticeStore(client *redis.Client) *RedisApprovalNoticeStore {
	return &RedisApprovalNoticeStore{client: client}
}

func (s *RedisApprovalNoticeStore) AlreadyNotified(ctx context.Context, earningID string) (bool, error) {
	n, err := s.client.Exists(ctx, approvalNoticeKey+earningID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisApprovalNoticeStore) MarkNotified(ctx context.Context, earningID string, ttl time.Duration) error {
	return s.client.Set(ctx, approvalNoticeKey+earningID, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

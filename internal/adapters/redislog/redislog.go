// Package redislog keeps per-model message history in Redis lists so catch
// up survives process restarts.
package redislog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

const opTimeout = 3 * time.Second

// Log stores each model's envelopes under keyPrefix+modelID, newest
// first, trimmed to maxKept entries.
type Log struct {
	client    *redis.Client
	keyPrefix string
	maxKept   int
}

func New(addr, keyPrefix string, maxKept int) (*Log, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if maxKept <= 0 {
		maxKept = 100
	}
	return &Log{client: client, keyPrefix: keyPrefix, maxKept: maxKept}, nil
}

func (l *Log) key(modelID string) string {
	return l.keyPrefix + modelID
}

func (l *Log) Append(modelID string, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := l.client.Pipeline()
	pipe.LPush(ctx, l.key(modelID), data)
	pipe.LTrim(ctx, l.key(modelID), 0, int64(l.maxKept)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append envelope: %w", err)
	}
	return nil
}

// Latest returns up to n envelopes in the order they were appended, oldest
// first. n <= 0 returns everything kept.
func (l *Log) Latest(modelID string, n int) ([]domain.Envelope, error) {
	if n <= 0 || n > l.maxKept {
		n = l.maxKept
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := l.client.LRange(ctx, l.key(modelID), 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read envelopes: %w", err)
	}

	// LPush stores newest first, so walk the range backwards.
	envs := make([]domain.Envelope, 0, len(data))
	for i := len(data) - 1; i >= 0; i-- {
		var env domain.Envelope
		if err := json.Unmarshal([]byte(data[i]), &env); err != nil {
			continue
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (l *Log) Count(modelID string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	n, err := l.client.LLen(ctx, l.key(modelID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count envelopes: %w", err)
	}
	return int(n), nil
}

func (l *Log) Close() error {
	return l.client.Close()
}

var _ ports.MessageLog = (*Log)(nil)

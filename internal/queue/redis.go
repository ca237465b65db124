package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"platoo/storefront/internal/domain"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ChangeFeed carries checkout storage change notifications between sessions
// (the storage event a second browser tab would observe)
type ChangeFeed interface {
	Publish(ctx context.Context, event domain.ChangeEvent) (string, error) // Returns message ID
	Read(ctx context.Context, lastID string, block time.Duration) ([]Message, error)
	LastID(ctx context.Context) (string, error)
}

type Message struct {
	ID    string
	Event domain.ChangeEvent
}

type RedisFeed struct {
	redisClient *redis.Client
	stream      string
	maxLen      int64
}

func NewRedisFeed(redisClient *redis.Client) *RedisFeed {
	return &RedisFeed{
		redisClient: redisClient,
		stream:      "platoo:stream:checkout",
		maxLen:      10000,
	}
}

func (q *RedisFeed) Publish(ctx context.Context, event domain.ChangeEvent) (string, error) {
	eventValue, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to serialize change event: %w", err)
	}

	messageID, err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"session_id": event.SessionID,
			"action":     event.Action,
			"event_data": string(eventValue),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add event to Redis stream %s: %w", q.stream, err)
	}

	log.Debugf("Published %s for session %s with message ID: %s", event.Action, event.SessionID, messageID)
	return messageID, nil
}

// Read returns events after lastID ("$" for only new ones, "0" for the whole
// stream). With block > 0 it waits up to block for something to arrive.
func (q *RedisFeed) Read(ctx context.Context, lastID string, block time.Duration) ([]Message, error) {
	if lastID == "" {
		lastID = "$"
	}

	args := &redis.XReadArgs{
		Streams: []string{q.stream, lastID},
		Count:   100,
		Block:   -1,
	}
	if block > 0 {
		args.Block = block
	}

	result, err := q.redisClient.XRead(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // No new messages
		}
		return nil, fmt.Errorf("failed to read from Redis stream %s: %w", q.stream, err)
	}

	var messages []Message
	for _, stream := range result {
		for _, msg := range stream.Messages {
			data, ok := msg.Values["event_data"].(string)
			if !ok {
				log.Warnf("⚠️ Skipping message %s without event data", msg.ID)
				continue
			}

			var event domain.ChangeEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				log.Warnf("⚠️ Skipping malformed message %s: %v", msg.ID, err)
				continue
			}

			messages = append(messages, Message{ID: msg.ID, Event: event})
		}
	}

	return messages, nil
}

// LastID returns the id of the newest event, "0-0" for an empty stream. Reading
// from it sees everything published afterwards, unlike "$" which is re-evaluated
// on every read.
func (q *RedisFeed) LastID(ctx context.Context) (string, error) {
	messages, err := q.redisClient.XRevRangeN(ctx, q.stream, "+", "-", 1).Result()
	if err != nil {
		return "", fmt.Errorf("failed to read last ID of Redis stream %s: %w", q.stream, err)
	}
	if len(messages) == 0 {
		return "0-0", nil
	}
	return messages[0].ID, nil
}

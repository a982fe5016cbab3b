package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"remindme/model"
	"remindme/repository"
)

// RedisTaskStore is a LocalTaskStore backed by Redis: one JSON document per
// task under task:<user>:<id>, plus a per-user id set for listing.
type RedisTaskStore struct {
	client *redis.Client
}

var _ repository.LocalTaskStore = (*RedisTaskStore)(nil)

// NewRedisTaskStore creates the store and verifies connectivity.
func NewRedisTaskStore(redisURL string) (*RedisTaskStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &RedisTaskStore{client: client}, nil
}

func taskKey(userID, taskID string) string {
	return fmt.Sprintf("task:%s:%s", userID, taskID)
}

func taskSetKey(userID string) string {
	return fmt.Sprintf("tasks:%s", userID)
}

func (s *RedisTaskStore) GetByID(ctx context.Context, userID, taskID string) (*model.Task, error) {
	data, err := s.client.Get(ctx, taskKey(userID, taskID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task: %v", err)
	}

	var task model.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %v", err)
	}
	return &task, nil
}

func (s *RedisTaskStore) Upsert(ctx context.Context, task *model.Task) error {
	if task.TaskID == "" || task.UserID == "" {
		return fmt.Errorf("task ID and user ID are required")
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %v", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, taskKey(task.UserID, task.TaskID), data, 0)
	pipe.SAdd(ctx, taskSetKey(task.UserID), task.TaskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store task: %v", err)
	}
	return nil
}

func (s *RedisTaskStore) Delete(ctx context.Context, userID, taskID string) error {
	if userID == "" {
		// Remote deletions only carry the task id; resolve the owner by
		// scanning key space (rare path, bounded by user count).
		var err error
		userID, err = s.findOwner(ctx, taskID)
		if err != nil {
			return err
		}
		if userID == "" {
			return nil
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, taskKey(userID, taskID))
	pipe.SRem(ctx, taskSetKey(userID), taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete task: %v", err)
	}
	return nil
}

func (s *RedisTaskStore) ListOrdered(ctx context.Context, userID, orderBy string) ([]*model.Task, error) {
	ids, err := s.client.SMembers(ctx, taskSetKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list task ids: %v", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(userID, id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks: %v", err)
	}

	tasks := make([]*model.Task, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Id set out of step with the documents; drop the stale entry.
			s.client.SRem(ctx, taskSetKey(userID), ids[i])
			continue
		}
		var task model.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			log.Printf("Skipping unreadable task %s: %v", ids[i], err)
			continue
		}
		tasks = append(tasks, &task)
	}

	repository.OrderTasks(tasks, orderBy)
	return tasks, nil
}

func (s *RedisTaskStore) findOwner(ctx context.Context, taskID string) (string, error) {
	var cursor uint64
	pattern := fmt.Sprintf("task:*:%s", taskID)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return "", fmt.Errorf("failed to scan for task owner: %v", err)
		}
		if len(keys) > 0 {
			// Key layout is task:<user>:<id>
			key := keys[0]
			start := len("task:")
			end := len(key) - len(taskID) - 1
			if end > start {
				return key[start:end], nil
			}
		}
		if next == 0 {
			return "", nil
		}
		cursor = next
	}
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

const oauthTaskKeyPrefix = "oauth:task:"

// resolveScript swaps a pending task to its terminal value and extends the
// TTL in one atomic step. Returns 1 on swap, 0 when the stored task is
// already terminal, -1 when the key is gone.
var resolveScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return -1
end
local task = cjson.decode(raw)
if task['status'] ~= 'pending' then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// OAuthTaskStore keeps consent-flow state in redis under a TTL. Shared by
// every service instance, so a callback may land on a different process than
// the one that generated the auth URL.
type OAuthTaskStore struct {
	client *redis.Client
}

func NewOAuthTaskStore(client *redis.Client) repository.IOAuthTaskStore {
	return &OAuthTaskStore{client: client}
}

func taskKey(taskID string) string { return oauthTaskKeyPrefix + taskID }

func (s *OAuthTaskStore) Put(ctx context.Context, task *model.OAuthTask, ttl time.Duration) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, taskKey(task.TaskID), raw, ttl).Err()
}

func (s *OAuthTaskStore) Get(ctx context.Context, taskID string) (*model.OAuthTask, error) {
	raw, err := s.client.Get(ctx, taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	task := &model.OAuthTask{}
	if err := json.Unmarshal(raw, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *OAuthTaskStore) Resolve(ctx context.Context, taskID string, terminal *model.OAuthTask, extend time.Duration) (bool, *model.OAuthTask, error) {
	raw, err := json.Marshal(terminal)
	if err != nil {
		return false, nil, err
	}
	res, err := resolveScript.Run(ctx, s.client, []string{taskKey(taskID)}, raw, extend.Milliseconds()).Int()
	if err != nil {
		return false, nil, err
	}
	switch res {
	case 1:
		return true, terminal, nil
	case 0:
		current, err := s.Get(ctx, taskID)
		if err != nil {
			return false, nil, err
		}
		return false, current, nil
	default:
		return false, nil, fmt.Errorf("oauth task %s expired", taskID)
	}
}

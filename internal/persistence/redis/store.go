// Package redis stores the activity registry in Redis.
package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"example.com/activities/internal/domain"
)

// Script results below zero map to domain errors.
const (
	resultActivityNotFound    = -1
	resultAlreadyEnrolled     = -2
	resultParticipantNotFound = -3
)

// KEYS: activity hash, roster list, member set. ARGV: email.
var enrollScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('SISMEMBER', KEYS[3], ARGV[1]) == 1 then return -2 end
redis.call('SADD', KEYS[3], ARGV[1])
redis.call('RPUSH', KEYS[2], ARGV[1])
return 1
`)

var unenrollScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('SREM', KEYS[3], ARGV[1]) == 0 then return -3 end
redis.call('LREM', KEYS[2], 1, ARGV[1])
return 1
`)

// KEYS: activity hash, roster list, member set, order list.
// ARGV: name, description, schedule, max_participants, emails...
var seedScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], 'description', ARGV[2], 'schedule', ARGV[3], 'max_participants', ARGV[4])
redis.call('RPUSH', KEYS[4], ARGV[1])
for i = 5, #ARGV do
  redis.call('RPUSH', KEYS[2], ARGV[i])
  redis.call('SADD', KEYS[3], ARGV[i])
end
return 1
`)

// Store implements domain.Store on top of Redis hashes, lists, and sets.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

var _ domain.Store = (*Store)(nil)

// NewStore constructs a Store whose keys all start with prefix.
func NewStore(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "activities"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) orderKey() string               { return s.prefix + ":order" }
func (s *Store) activityKey(name string) string { return s.prefix + ":activity:" + name }
func (s *Store) rosterKey(name string) string   { return s.prefix + ":roster:" + name }
func (s *Store) memberKey(name string) string   { return s.prefix + ":members:" + name }

func (s *Store) keys(name string) []string {
	return []string{s.activityKey(name), s.rosterKey(name), s.memberKey(name)}
}

// Seed stores activities that are not present yet.
func (s *Store) Seed(ctx context.Context, activities []domain.Activity) error {
	for _, a := range activities {
		args := make([]interface{}, 0, 4+len(a.Participants))
		args = append(args, a.Name, a.Description, a.Schedule, a.MaxParticipants)
		for _, email := range a.Participants {
			args = append(args, email)
		}
		keys := append(s.keys(a.Name), s.orderKey())
		if err := seedScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
			return fmt.Errorf("seed %q: %w", a.Name, err)
		}
	}
	return nil
}

// List implements domain.Store.
func (s *Store) List(ctx context.Context) ([]domain.Activity, error) {
	names, err := s.client.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity order: %w", err)
	}
	if len(names) == 0 {
		return []domain.Activity{}, nil
	}

	meta := make([]*goredis.MapStringStringCmd, len(names))
	rosters := make([]*goredis.StringSliceCmd, len(names))
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, name := range names {
			meta[i] = pipe.HGetAll(ctx, s.activityKey(name))
			rosters[i] = pipe.LRange(ctx, s.rosterKey(name), 0, -1)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read activities: %w", err)
	}

	out := make([]domain.Activity, 0, len(names))
	for i, name := range names {
		fields := meta[i].Val()
		capacity, err := strconv.Atoi(fields["max_participants"])
		if err != nil {
			return nil, fmt.Errorf("activity %q: invalid max_participants: %w", name, err)
		}
		participants := rosters[i].Val()
		if participants == nil {
			participants = []string{}
		}
		out = append(out, domain.Activity{
			Name:            name,
			Description:     fields["description"],
			Schedule:        fields["schedule"],
			MaxParticipants: capacity,
			Participants:    participants,
		})
	}
	return out, nil
}

// Enroll implements domain.Store.
func (s *Store) Enroll(ctx context.Context, activityName, email string) error {
	return s.run(ctx, enrollScript, activityName, email)
}

// Unenroll implements domain.Store.
func (s *Store) Unenroll(ctx context.Context, activityName, email string) error {
	return s.run(ctx, unenrollScript, activityName, email)
}

func (s *Store) run(ctx context.Context, script *goredis.Script, activityName, email string) error {
	result, err := script.Run(ctx, s.client, s.keys(activityName), email).Int()
	if err != nil {
		return fmt.Errorf("roster script: %w", err)
	}
	switch result {
	case resultActivityNotFound:
		return domain.ErrActivityNotFound
	case resultAlreadyEnrolled:
		return domain.ErrAlreadyEnrolled
	case resultParticipantNotFound:
		return domain.ErrParticipantNotFound
	}
	return nil
}

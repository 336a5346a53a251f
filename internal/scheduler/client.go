package scheduler

import (
	"crypto/tls"
	"fmt"

	"forwarding_portal_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// RedisClientOpt builds the asynq connection options from the Redis URL.
func RedisClientOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	clientOpt := asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.TLSConfig != nil {
		clientOpt.TLSConfig = opts.TLSConfig
		if cfg.GetRedisTLSInsecure() {
			clientOpt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}
	return clientOpt, nil
}

// NewRedisClient builds the go-redis client used by the sync status store.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return redis.NewClient(opts), nil
}

// NewClient creates an asynq client for enqueueing tasks.
func NewClient(cfg config.SchedulerConfig) (*asynq.Client, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}

// NewPeriodicScheduler creates the asynq scheduler that fires the autosave
// flush on the configured interval.
func NewPeriodicScheduler(cfg config.SchedulerConfig) (*asynq.Scheduler, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, nil)
	spec := fmt.Sprintf("@every %s", cfg.GetAutosaveInterval())
	if _, err := scheduler.Register(spec, NewAutosaveFlushTask(), asynq.Queue(cfg.GetAsynqQueueName())); err != nil {
		return nil, fmt.Errorf("register autosave flush: %w", err)
	}
	return scheduler, nil
}

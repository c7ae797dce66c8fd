package config

import (
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// ProvideRedis returns nil when no REDIS_URL is configured; the settings
// repo then serves every lookup from postgres.
func ProvideRedis(config *Config) (*redis.Client, error) {
	if len(config.RedisUrl) == 0 {
		log.Info().Msg("Redis not configured, settings cache disabled")
		return nil, nil
	}

	options, err := redis.ParseURL(config.RedisUrl)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(options)

	_, err = client.Ping(client.Context()).Result()
	if err != nil {
		return nil, err
	}

	return client, nil
}

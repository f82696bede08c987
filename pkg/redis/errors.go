package redis

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("redis: empty connection URL, set REDIS_URL or leave redis disabled")
	ErrFailedToParseRedisConnString = errors.New("redis: failed to parse connection URL")
	ErrRedisNotReady                = errors.New("redis: not ready after all connection attempts")
	ErrHealthcheckFailed            = errors.New("redis: healthcheck failed")
)

// Package redis connects to Redis with go-redis/v9.
//
// Redis is optional in trainkit: it carries the tenant cache clear
// broadcast between instances. Config.Enabled is false when REDIS_URL is
// unset, and callers then run single-instance.
//
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg)
//		if err != nil {
//			return err
//		}
//		defer client.Close()
//	}
//
// Connect retries the initial ping; Healthcheck adapts the client for the
// readiness endpoint. Errors wrap the go-redis cause with errors.Join.
package redis

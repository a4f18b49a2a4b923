// Package redis connects to Redis with go-redis and provides Storage, the
// prefixed string key-value store behind the checkout session cache.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	kv := redis.NewStorage(client, redis.WithPrefix(cfg.KeyPrefix), redis.WithTTL(24*time.Hour))
//	pending := checkout.NewPendingStore(checkout.Prefixed(kv, "session:"+id+":"))
//
// Storage.SetMany writes in a single MULTI/EXEC so a pending subscription is
// never persisted half way. Healthcheck plugs into the readiness probe.
package redis

package tictactoe

import (
	"fmt"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/iguagile/iguagile-tictactoe/registry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Redis keys of the presence mirror.
const (
	onlineKey = "tictactoe:online"
	stateKey  = "tictactoe:state"
	gamesKey  = "tictactoe:games"
)

// Store mirrors presence for outside observers. It is never read back.
type Store interface {
	Reset() error
	UserOnline(name string) error
	UserOffline(name string) error
	SetAvailability(name string, a registry.Availability) error
	GameStarted(gameID int, x, o string) error
	GameEnded(gameID int) error
	Close() error
}

// ErrStoreBacklog is returned when the presence writer is too far behind.
var ErrStoreBacklog = errors.New("presence store backlog full")

const (
	storeQueue       = 256
	redisIdleTimeout = time.Minute
)

// RedisStore is a Store backed by redis. Writes are queued and applied by one
// goroutine so a slow redis never stalls the caller.
type RedisStore struct {
	pool  *redis.Pool
	queue chan func(redis.Conn) error
	done  chan struct{}
	log   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewRedisStore connects to the redis server at address.
func NewRedisStore(address string, logger *zap.Logger) (*RedisStore, error) {
	pool := &redis.Pool{
		MaxIdle:     1,
		IdleTimeout: redisIdleTimeout,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", address,
				redis.DialConnectTimeout(time.Second),
				redis.DialReadTimeout(time.Second),
				redis.DialWriteTimeout(time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	conn := pool.Get()
	_, err := conn.Do("PING")
	_ = conn.Close()
	if err != nil {
		_ = pool.Close()
		return nil, errors.Wrap(err, "dial redis")
	}

	return newRedisStore(pool, storeQueue, logger), nil
}

func newRedisStore(pool *redis.Pool, queue int, logger *zap.Logger) *RedisStore {
	r := &RedisStore{
		pool:  pool,
		queue: make(chan func(redis.Conn) error, queue),
		done:  make(chan struct{}),
		log:   logger,
	}
	go r.writeStart()
	return r
}

func (r *RedisStore) writeStart() {
	defer close(r.done)

	for write := range r.queue {
		// a fresh conn per write lets the pool replace a broken one
		conn := r.pool.Get()
		err := write(conn)
		_ = conn.Close()
		if err != nil {
			r.log.Warn("presence write failed", zap.Error(err))
		}
	}
}

func (r *RedisStore) enqueue(write func(redis.Conn) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return errors.New("presence store closed")
	}

	select {
	case r.queue <- write:
		return nil
	default:
		return ErrStoreBacklog
	}
}

func do(command string, args ...interface{}) func(redis.Conn) error {
	return func(conn redis.Conn) error {
		_, err := conn.Do(command, args...)
		return err
	}
}

// Reset deletes every key left by a previous run. It runs synchronously.
func (r *RedisStore) Reset() error {
	conn := r.pool.Get()
	defer conn.Close()
	_, err := conn.Do("DEL", onlineKey, stateKey, gamesKey)
	return err
}

func (r *RedisStore) UserOnline(name string) error {
	return r.enqueue(func(conn redis.Conn) error {
		if err := conn.Send("SADD", onlineKey, name); err != nil {
			return err
		}
		if err := conn.Send("HSET", stateKey, name, registry.Available.String()); err != nil {
			return err
		}
		_, err := conn.Do("")
		return err
	})
}

func (r *RedisStore) UserOffline(name string) error {
	return r.enqueue(func(conn redis.Conn) error {
		if err := conn.Send("SREM", onlineKey, name); err != nil {
			return err
		}
		if err := conn.Send("HDEL", stateKey, name); err != nil {
			return err
		}
		_, err := conn.Do("")
		return err
	})
}

func (r *RedisStore) SetAvailability(name string, a registry.Availability) error {
	return r.enqueue(do("HSET", stateKey, name, a.String()))
}

func (r *RedisStore) GameStarted(gameID int, x, o string) error {
	return r.enqueue(do("HSET", gamesKey, gameID, fmt.Sprintf("%s:%s", x, o)))
}

func (r *RedisStore) GameEnded(gameID int) error {
	return r.enqueue(do("HDEL", gamesKey, gameID))
}

// Close applies the queued writes and closes the pool.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return r.pool.Close()
}

// nopStore is used when no redis address is configured.
type nopStore struct{}

func (nopStore) Reset() error                                        { return nil }
func (nopStore) UserOnline(string) error                             { return nil }
func (nopStore) UserOffline(string) error                            { return nil }
func (nopStore) SetAvailability(string, registry.Availability) error { return nil }
func (nopStore) GameStarted(int, string, string) error               { return nil }
func (nopStore) GameEnded(int) error                                 { return nil }
func (nopStore) Close() error                                        { return nil }

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient Redis Pub/Sub 클라이언트 인터페이스
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan Message, error)
	Close() error
}

// Message 메시지 구조체
type Message struct {
	Channel string
	Payload []byte
	Time    time.Time
}

// Config Redis 연결 설정
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration // 0이면 5초
}

// redisClient Redis 클라이언트 구현체
type redisClient struct {
	client *redis.Client
}

// NewRedisClient Redis 클라이언트 생성. 연결을 확인한 뒤 반환합니다
func NewRedisClient(cfg Config) (RedisClient, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 연결 실패: %w", err)
	}

	return &redisClient{
		client: client,
	}, nil
}

// Publish 메시지 발행. message는 JSON으로 직렬화됩니다
func (r *redisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("메시지 직렬화 실패: %w", err)
	}

	return r.client.Publish(ctx, channel, payload).Err()
}

// Subscribe 채널 구독. ctx가 취소되면 채널이 닫힙니다
func (r *redisClient) Subscribe(ctx context.Context, channel string) (<-chan Message, error) {
	pubsub := r.client.Subscribe(ctx, channel)

	// 구독 확인
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("채널 구독 실패: %w", err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- Message{
					Channel: msg.Channel,
					Payload: []byte(msg.Payload),
					Time:    time.Now(),
				}
			}
		}
	}()

	return out, nil
}

// Close 클라이언트 종료
func (r *redisClient) Close() error {
	return r.client.Close()
}

package testutil

import (
	"context"
	"time"

	"github.com/patentx-lab/backend/pkg/xredis"
)

type MockRedisClient struct {
	ExistFunc      func(ctx context.Context, key string) (bool, error)
	GetFunc        func(ctx context.Context, key string) (string, error)
	SetFunc        func(ctx context.Context, key, value string) error
	SetWithTTLFunc func(ctx context.Context, key, value string, ttl time.Duration) error
	DelFunc        func(ctx context.Context, key string) error
}

func (m *MockRedisClient) Exist(ctx context.Context, key string) (bool, error) {
	if m.ExistFunc != nil {
		return m.ExistFunc(ctx, key)
	}

	return false, nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}

	return "", xredis.ErrNil
}

func (m *MockRedisClient) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}

	return nil
}

func (m *MockRedisClient) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.SetWithTTLFunc != nil {
		return m.SetWithTTLFunc(ctx, key, value, ttl)
	}

	return nil
}

func (m *MockRedisClient) Del(ctx context.Context, key string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, key)
	}

	return nil
}

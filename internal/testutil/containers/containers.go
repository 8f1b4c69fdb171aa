//go:build integration

// Package containers provides testcontainers-go helpers for integration
// testing against real service containers.
//
// All helpers in this package are gated behind the "integration" build
// tag so they do not pull Docker-related dependencies into unit test
// builds. Use them exclusively from test files that carry the same tag:
//
//	//go:build integration
//
// # Redis
//
// [StartRedis] starts a Redis 7 container and returns a [RedisResult]
// containing the container handle and a connection string (redis://...)
// ready for the "redisUri" setting of the token cache:
//
//	result, err := containers.StartRedis(ctx)
//	if err != nil { ... }
//	defer result.Container.Terminate(ctx)
package containers

import (
	"context"
	"fmt"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// DefaultRedisImage is the container image used for Redis integration
// tests.
const DefaultRedisImage = "docker.io/redis:7-alpine"

// RedisResult holds a started Redis container and the connection string
// needed to connect to it. The caller is responsible for terminating the
// container when it is no longer needed:
//
//	defer result.Container.Terminate(ctx)
//
// ConnString is in Redis URI format (e.g., "redis://localhost:55679/0").
type RedisResult struct {
	// Container is the started Redis testcontainer.
	Container *tcredis.RedisContainer

	// ConnString is a Redis connection string in URI format.
	ConnString string
}

// StartRedis starts a Redis container using testcontainers-go and returns
// a [RedisResult] containing the container handle and a connection string.
//
// The container runs [DefaultRedisImage] without authentication, which is
// acceptable for ephemeral local containers only.
//
// StartRedis returns an error if the container fails to start or if the
// connection string cannot be retrieved. In the latter case, the container
// is terminated before returning.
func StartRedis(ctx context.Context) (*RedisResult, error) {
	container, err := tcredis.Run(ctx, DefaultRedisImage)
	if err != nil {
		return nil, fmt.Errorf("containers: failed to start redis container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("containers: failed to get redis connection string: %w", err)
	}

	return &RedisResult{
		Container:  container,
		ConnString: connStr,
	}, nil
}

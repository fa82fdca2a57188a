package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/care-coordinator/internal/config"
	"github.com/wolfman30/care-coordinator/internal/directory"
	"github.com/wolfman30/care-coordinator/internal/prompts"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

func TestBuildRedisClient(t *testing.T) {
	logger := logging.New("error")
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, logger, true))
	assert.Nil(t, BuildRedisClient(context.Background(), nil, logger, true))

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	require.NotNil(t, client)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logger, true), "failed ping disables redis")
	assert.NotNil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logger, false), "unverified client is returned as is")
}

func TestBuildDirectoryStoreWithoutDatabase(t *testing.T) {
	store, pool, err := BuildDirectoryStore(context.Background(), &appconfig.Config{}, logging.New("error"))
	require.NoError(t, err)
	assert.Nil(t, pool)
	require.IsType(t, &directory.MemoryStore{}, store)

	listings, err := store.Search(context.Background(), directory.Query{LastName: "House"})
	require.NoError(t, err)
	assert.NotEmpty(t, listings)
}

func TestBuildDirectoryStoreBadDSN(t *testing.T) {
	_, _, err := BuildDirectoryStore(context.Background(), &appconfig.Config{DatabaseURL: "postgres://%zz"}, logging.New("error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory: parse postgres dsn")
}

func TestBuildPromptSource(t *testing.T) {
	logger := logging.New("error")

	source, overrides, err := BuildPromptSource(&appconfig.Config{PromptTimezone: "Not/AZone"}, nil, logger)
	require.NoError(t, err)
	assert.Nil(t, overrides)
	assert.IsType(t, &prompts.EmbeddedSource{}, source)

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	require.NotNil(t, client)
	defer client.Close()

	source, overrides, err = BuildPromptSource(&appconfig.Config{PromptTimezone: "UTC"}, client, logger)
	require.NoError(t, err)
	require.NotNil(t, overrides)
	require.NoError(t, overrides.Override(context.Background(), prompts.ToolCall, "Custom prompt"))

	text, err := source.Resolve(context.Background(), prompts.ToolCall)
	require.NoError(t, err)
	assert.Equal(t, "Custom prompt", text)
}

func TestHealthChecks(t *testing.T) {
	assert.Empty(t, HealthChecks(nil, nil))

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	defer client.Close()

	checks := HealthChecks(nil, client)
	require.Contains(t, checks, "redis")
	assert.NoError(t, checks["redis"](context.Background()))
	mr.Close()
	assert.Error(t, checks["redis"](context.Background()))
}

func TestBuildMetrics(t *testing.T) {
	handler, pm := BuildMetrics()
	pm.ObserveTurn("direct", 0.4)
	pm.ObserveToolCall("book_appointment", "ok")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `care_pipeline_turns_total{path="direct"} 1`)
	assert.Contains(t, body, `care_pipeline_tool_calls_total{outcome="ok",tool="book_appointment"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

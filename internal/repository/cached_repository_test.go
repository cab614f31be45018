package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cacheNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// unreachableRedis returns a client whose every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// liveRedis connects to REDIS_URL or skips the test.
func liveRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func seedBanks(t *testing.T, st *memory.Store, userID int64, banks ...int64) *domain.QuestionBanksPerUser {
	t.Helper()
	reg, err := domain.NewQuestionBanksPerUser(userID, cacheNow)
	require.NoError(t, err)
	for _, id := range banks {
		require.NoError(t, reg.AddBank(id, "bank", cacheNow))
	}
	require.True(t, st.Banks().Save(context.Background(), reg).IsSuccess())
	return reg
}

func seedTaxonomy(t *testing.T, st *memory.Store, userID, bankID int64, tags ...string) *domain.TaxonomySet {
	t.Helper()
	var tt []domain.Tag
	for _, id := range tags {
		tt = append(tt, domain.Tag{ID: id, Name: id})
	}
	var cats [domain.MaxCategoryLevels]*domain.Category
	ts, err := domain.NewTaxonomySet(userID, bankID, cats, tt, nil, nil, nil, cacheNow)
	require.NoError(t, err)
	require.True(t, st.Taxonomies().Save(context.Background(), ts).IsSuccess())
	return ts
}

func TestCachedBanksFallBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	seedBanks(t, st, 1001, 2002)
	repo := NewCachedQuestionBanksRepository(st.Banks(), unreachableRedis(t), time.Minute, zerolog.Nop())

	owned := repo.ValidateOwnership(ctx, 1001, 2002)
	require.True(t, owned.IsSuccess(), owned.Message())
	assert.True(t, owned.Value())

	other := repo.ValidateOwnership(ctx, 1001, 9999)
	require.True(t, other.IsSuccess())
	assert.False(t, other.Value())

	active := repo.IsQuestionBankActive(ctx, 1001, 2002)
	require.True(t, active.IsSuccess())
	assert.True(t, active.Value())
}

func TestCachedBanksUnknownUserOwnsNothing(t *testing.T) {
	repo := NewCachedQuestionBanksRepository(memory.NewStore().Banks(), unreachableRedis(t), time.Minute, zerolog.Nop())

	res := repo.ValidateOwnership(context.Background(), 4242, 2002)
	require.True(t, res.IsSuccess())
	assert.False(t, res.Value())

	get := repo.Get(context.Background(), 4242)
	assert.Equal(t, outcome.CodeNotFound, get.Code())
}

func TestCachedBanksSaveSucceedsWhenInvalidateFails(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	repo := NewCachedQuestionBanksRepository(st.Banks(), unreachableRedis(t), time.Minute, zerolog.Nop())

	reg, err := domain.NewQuestionBanksPerUser(1001, cacheNow)
	require.NoError(t, err)
	require.NoError(t, reg.AddBank(2002, "bank", cacheNow))

	assert.True(t, repo.Save(ctx, reg).IsSuccess())
	assert.True(t, st.Banks().ValidateOwnership(ctx, 1001, 2002).Value())
}

func TestCachedTaxonomyFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	seedTaxonomy(t, st, 1001, 2002, "js-arrays")
	repo := NewCachedTaxonomySetRepository(st.Taxonomies(), unreachableRedis(t), time.Minute, zerolog.Nop())

	ok := repo.ValidateTaxonomyReferences(ctx, 1001, 2002, []string{"js-arrays"})
	require.True(t, ok.IsSuccess(), ok.Message())
	assert.True(t, ok.Value())

	invalid := repo.GetInvalidTaxonomyReferences(ctx, 1001, 2002, []string{"js-arrays", "go-maps"})
	require.True(t, invalid.IsSuccess())
	assert.Equal(t, []string{"go-maps"}, invalid.Value())
}

func TestCachedTaxonomyMissingSetIsEmpty(t *testing.T) {
	repo := NewCachedTaxonomySetRepository(memory.NewStore().Taxonomies(), unreachableRedis(t), time.Minute, zerolog.Nop())

	res := repo.GetInvalidTaxonomyReferences(context.Background(), 1001, 2002, []string{"a", "b", "a"})
	require.True(t, res.IsSuccess())
	assert.Equal(t, []string{"a", "b"}, res.Value())

	valid := repo.ValidateTaxonomyReferences(context.Background(), 1001, 2002, nil)
	require.True(t, valid.IsSuccess())
	assert.True(t, valid.Value())
}

func TestCachedBanksReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	rdb := liveRedis(t)
	userID := time.Now().UnixNano()
	key := config.CacheKey.QuestionBanksKey(userID)
	t.Cleanup(func() { rdb.Del(context.Background(), key) })

	st := memory.NewStore()
	reg := seedBanks(t, st, userID, 2002)
	repo := NewCachedQuestionBanksRepository(st.Banks(), rdb, time.Minute, zerolog.Nop())

	require.True(t, repo.ValidateOwnership(ctx, userID, 2002).Value())
	n, err := rdb.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "miss populates the cache")

	// A write behind the cache's back is invisible until invalidation.
	require.NoError(t, reg.AddBank(3003, "second", cacheNow))
	require.True(t, st.Banks().Save(ctx, reg).IsSuccess())
	assert.False(t, repo.ValidateOwnership(ctx, userID, 3003).Value(), "hit serves the cached registry")

	require.True(t, repo.Save(ctx, reg).IsSuccess())
	n, err = rdb.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "save invalidates the entry")
	assert.True(t, repo.ValidateOwnership(ctx, userID, 3003).Value())
}

func TestCachedTaxonomyReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	rdb := liveRedis(t)
	userID := time.Now().UnixNano()
	key := config.CacheKey.TaxonomySetKey(userID, 2002)
	t.Cleanup(func() { rdb.Del(context.Background(), key) })

	st := memory.NewStore()
	ts := seedTaxonomy(t, st, userID, 2002, "js-arrays")
	repo := NewCachedTaxonomySetRepository(st.Taxonomies(), rdb, time.Minute, zerolog.Nop())

	require.True(t, repo.ValidateTaxonomyReferences(ctx, userID, 2002, []string{"js-arrays"}).Value())

	ts.Tags = append(ts.Tags, domain.Tag{ID: "go-maps", Name: "go-maps"})
	require.True(t, st.Taxonomies().Save(ctx, ts).IsSuccess())
	assert.False(t, repo.ValidateTaxonomyReferences(ctx, userID, 2002, []string{"go-maps"}).Value())

	require.True(t, repo.Save(ctx, ts).IsSuccess())
	assert.True(t, repo.ValidateTaxonomyReferences(ctx, userID, 2002, []string{"go-maps"}).Value())
}

func TestReadThroughDiscardsUndecodableEntry(t *testing.T) {
	ctx := context.Background()
	rdb := liveRedis(t)
	userID := time.Now().UnixNano()
	key := config.CacheKey.QuestionBanksKey(userID)
	t.Cleanup(func() { rdb.Del(context.Background(), key) })
	require.NoError(t, rdb.Set(ctx, key, "{not json", time.Minute).Err())

	st := memory.NewStore()
	seedBanks(t, st, userID, 2002)
	repo := NewCachedQuestionBanksRepository(st.Banks(), rdb, time.Minute, zerolog.Nop())

	assert.True(t, repo.ValidateOwnership(ctx, userID, 2002).Value())
}

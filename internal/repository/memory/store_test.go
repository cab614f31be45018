package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func saveQuestion(t *testing.T, st *Store, source, title, content string, typ domain.TypeData, at time.Time) *domain.Question {
	t.Helper()
	q, _, err := domain.NewQuestion(domain.NewQuestionParams{
		Key:      domain.BusinessKey{UserID: 1, QuestionBankID: 2, SourceQuestionID: source},
		Title:    title,
		Content:  content,
		Points:   1,
		TypeData: typ,
	}, at)
	require.NoError(t, err)
	res := st.Questions().UpsertBySourceQuestionID(context.Background(), q)
	require.True(t, res.IsSuccess())
	return res.Value()
}

func TestUpsertIsIdempotentByKey(t *testing.T) {
	st := NewStore()
	first := saveQuestion(t, st, "s1", "First", "c", &domain.TrueFalseData{}, t0)
	second := saveQuestion(t, st, "s1", "Second", "c", &domain.TrueFalseData{}, t0.Add(time.Hour))

	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, t0, second.CreatedAt())

	found := st.Questions().FindBySourceQuestionID(context.Background(), second.Key())
	require.NotNil(t, found.Value())
	assert.Equal(t, "Second", found.Value().Title())

	missing := st.Questions().FindBySourceQuestionID(context.Background(), domain.BusinessKey{UserID: 1, QuestionBankID: 2, SourceQuestionID: "nope"})
	assert.True(t, missing.IsSuccess())
	assert.Nil(t, missing.Value())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	st := NewStore()
	q := saveQuestion(t, st, "s1", "Kept", "c", &domain.TrueFalseData{}, t0)
	rels := domain.BuildRelationships(1, 2, q.ID(), domain.Taxonomy{Tags: []domain.TagRef{{ID: "t1"}}}, t0)
	require.True(t, st.Relationships().ReplaceRelationshipsForQuestion(context.Background(), 1, 2, q.ID(), rels).IsSuccess())

	boom := errors.New("boom")
	err := st.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := q.UpdateBasicContent("Changed", "new content", 3, t0.Add(time.Minute))
		require.NoError(t, err)
		st.Questions().UpsertBySourceQuestionID(ctx, q)
		st.Relationships().ReplaceRelationshipsForQuestion(ctx, 1, 2, q.ID(), nil)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found := st.Questions().FindBySourceQuestionID(context.Background(), q.Key()).Value()
	assert.Equal(t, "Kept", found.Title())
	assert.Len(t, st.Relationships().ListByQuestion(context.Background(), 1, 2, q.ID()).Value(), 1)
}

func TestReplaceRejectsDuplicatesAndHonorsHook(t *testing.T) {
	st := NewStore()
	qid := uuid.New()
	rel := domain.TaxonomyRelationship{UserID: 1, QuestionBankID: 2, QuestionID: qid, TaxonomyType: domain.TaxonomyTag, TaxonomyID: "t"}

	res := st.Relationships().ReplaceRelationshipsForQuestion(context.Background(), 1, 2, qid, []domain.TaxonomyRelationship{rel, rel})
	assert.Equal(t, outcome.CodeDuplicateRelationship, res.Code())

	st.FailNextReplace(outcome.CodeDatabaseError)
	res = st.Relationships().ReplaceRelationshipsForQuestion(context.Background(), 1, 2, qid, []domain.TaxonomyRelationship{rel})
	assert.Equal(t, outcome.CodeDatabaseError, res.Code())

	res = st.Relationships().ReplaceRelationshipsForQuestion(context.Background(), 1, 2, qid, []domain.TaxonomyRelationship{rel})
	require.True(t, res.IsSuccess())
	assert.Equal(t, 1, res.Value())
}

func TestOwnershipAndActivity(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	reg, _ := domain.NewQuestionBanksPerUser(1, t0)
	require.NoError(t, reg.AddBank(2, "bank", t0))
	require.NoError(t, reg.AddBank(3, "old", t0))
	require.NoError(t, reg.Deactivate(3, t0))
	require.True(t, st.Banks().Save(ctx, reg).IsSuccess())

	assert.True(t, st.Banks().ValidateOwnership(ctx, 1, 2).Value())
	assert.False(t, st.Banks().ValidateOwnership(ctx, 9, 2).Value())
	assert.True(t, st.Banks().IsQuestionBankActive(ctx, 1, 2).Value())
	assert.False(t, st.Banks().IsQuestionBankActive(ctx, 1, 3).Value())

	st.FailOwnership(outcome.CodeCacheError, 2)
	assert.Equal(t, outcome.CodeCacheError, st.Banks().ValidateOwnership(ctx, 1, 2).Code())
	assert.Equal(t, outcome.CodeCacheError, st.Banks().ValidateOwnership(ctx, 1, 2).Code())
	assert.True(t, st.Banks().ValidateOwnership(ctx, 1, 2).IsSuccess())
	assert.Equal(t, int64(5), st.Stats().OwnershipChecks)
}

func TestTaxonomyLookups(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	assert.Equal(t, []string{"x"}, st.Taxonomies().GetInvalidTaxonomyReferences(ctx, 1, 2, []string{"x", "x"}).Value())
	assert.Equal(t, outcome.CodeNotFound, st.Taxonomies().Get(ctx, 1, 2).Code())

	ts, err := domain.NewTaxonomySet(1, 2, [domain.MaxCategoryLevels]*domain.Category{{ID: "tech"}},
		[]domain.Tag{{ID: "js"}}, nil, nil, []domain.DifficultyLevel{{Level: "easy"}}, t0)
	require.NoError(t, err)
	require.True(t, st.Taxonomies().Save(ctx, ts).IsSuccess())

	assert.True(t, st.Taxonomies().ValidateTaxonomyReferences(ctx, 1, 2, []string{"tech", "js", "easy"}).Value())
	assert.Equal(t, []string{"go"}, st.Taxonomies().GetInvalidTaxonomyReferences(ctx, 1, 2, []string{"js", "go"}).Value())
}

func TestQueryEvaluatesPipeline(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	scope := model.TenantScope{UserID: 1, QuestionBankID: 2}

	link := func(q *domain.Question, tx domain.Taxonomy) {
		rels := domain.BuildRelationships(1, 2, q.ID(), tx, t0)
		require.True(t, st.Relationships().ReplaceRelationshipsForQuestion(ctx, 1, 2, q.ID(), rels).IsSuccess())
	}
	a := saveQuestion(t, st, "a", "Array push", "Which method appends?", &domain.TrueFalseData{}, t0)
	b := saveQuestion(t, st, "b", "Closures explained", "Closures capture variables", &domain.EssayData{}, t0.Add(time.Minute))
	c := saveQuestion(t, st, "c", "Array closures", "Arrays hold values", &domain.TrueFalseData{}, t0.Add(2*time.Minute))
	link(a, domain.Taxonomy{Categories: domain.Categories{Level1: &domain.CategoryRef{ID: "tech"}}, Tags: []domain.TagRef{{ID: "arrays"}}})
	link(b, domain.Taxonomy{Categories: domain.Categories{Level1: &domain.CategoryRef{ID: "tech"}, Level2: &domain.CategoryRef{ID: "js"}}, Tags: []domain.TagRef{{ID: "fn"}}})
	link(c, domain.Taxonomy{Categories: domain.Categories{Level1: &domain.CategoryRef{ID: "tech"}, Level2: &domain.CategoryRef{ID: "js"}}, Tags: []domain.TagRef{{ID: "arrays"}}})

	run := func(b *query.Builder) model.Page[model.QuestionView] {
		p, err := b.Build()
		require.NoError(t, err)
		res := st.Query().Query(ctx, p)
		require.True(t, res.IsSuccess())
		return res.Value()
	}
	sources := func(p model.Page[model.QuestionView]) []string {
		var out []string
		for _, v := range p.Items {
			out = append(out, v.SourceQuestionID)
		}
		return out
	}

	assert.Equal(t, []string{"c", "b", "a"}, sources(run(query.New(scope))))
	assert.Equal(t, []string{"c", "b"}, sources(run(query.New(scope).Categories("tech", "js"))))
	assert.Equal(t, []string{"c", "a"}, sources(run(query.New(scope).Tags("arrays", "nothing"))))
	assert.Equal(t, []string{"b"}, sources(run(query.New(scope).Types(domain.QuestionTypeEssay))))
	assert.Equal(t, []string{"a", "c"}, sources(run(query.New(scope).Search("ARRAY").SortBy("createdAt", "asc"))))

	ranked := run(query.New(scope).Search("closures").SortBy(query.SortRelevance, ""))
	assert.Equal(t, []string{"b", "c"}, sources(ranked))

	page := run(query.New(scope).Page(1).Size(2))
	assert.Equal(t, []string{"a"}, sources(page))
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)

	other := run(query.New(model.TenantScope{UserID: 1, QuestionBankID: 99}))
	assert.Empty(t, other.Items)
}

func TestChangeLog(t *testing.T) {
	l := NewChangeLog()
	require.NoError(t, l.Publish(context.Background(), []domain.ChangeRecord{{Kind: domain.ChangeCreated}}))
	l.FailWith(errors.New("down"))
	assert.Error(t, l.Publish(context.Background(), []domain.ChangeRecord{{Kind: domain.ChangePublished}}))
	assert.Len(t, l.Records(), 1)
}

func TestChangeFeedRoutesByBank(t *testing.T) {
	feed := NewChangeFeed()
	ctx := context.Background()

	mine, err := feed.Subscribe(ctx, 1, 2)
	require.NoError(t, err)
	other, err := feed.Subscribe(ctx, 1, 3)
	require.NoError(t, err)

	rec := domain.ChangeRecord{
		Key:  domain.BusinessKey{UserID: 1, QuestionBankID: 2, SourceQuestionID: "s1"},
		Kind: domain.ChangeCreated,
	}
	require.NoError(t, feed.Publish(ctx, []domain.ChangeRecord{rec}))

	assert.Equal(t, rec, <-mine.Records())
	select {
	case got := <-other.Records():
		t.Fatalf("unexpected record for another bank: %+v", got)
	default:
	}

	require.NoError(t, mine.Close())
	require.NoError(t, mine.Close())
	assert.Zero(t, feed.Subscribers(1, 2))
	assert.Equal(t, 1, feed.Subscribers(1, 3))
}

func TestChangeFeedDropsForSlowSubscribers(t *testing.T) {
	feed := NewChangeFeed()
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := feed.Subscribe(ctx, 1, 2)
	require.NoError(t, err)

	recs := make([]domain.ChangeRecord, feedBuffer+10)
	for i := range recs {
		recs[i] = domain.ChangeRecord{Key: domain.BusinessKey{UserID: 1, QuestionBankID: 2}}
	}
	require.NoError(t, feed.Publish(ctx, recs))

	cancel()
	n := 0
	for range stream.Records() {
		n++
	}
	assert.Equal(t, feedBuffer, n)
}

package repository

import (
	"strings"
	"testing"

	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scope = model.TenantScope{UserID: 1001, QuestionBankID: 2002}

func render(t *testing.T, b *query.Builder) RenderedQuery {
	t.Helper()
	p, err := b.Build()
	require.NoError(t, err)
	rq, err := RenderQuestionQuery(p)
	require.NoError(t, err)
	return rq
}

func TestRenderScopeOnly(t *testing.T) {
	rq := render(t, query.New(scope).Page(2).Size(10))

	assert.Contains(t, rq.ListSQL, "q.user_id = $1")
	assert.Contains(t, rq.ListSQL, "q.question_bank_id = $2")
	assert.Contains(t, rq.ListSQL, "0::float8 AS score")
	assert.Contains(t, rq.ListSQL, "ORDER BY q.created_at DESC, q.id ASC")
	assert.Contains(t, rq.ListSQL, "LIMIT $3 OFFSET $4")
	assert.NotContains(t, rq.CountSQL, "LIMIT")
	assert.Equal(t, []any{int64(1001), int64(2002)}, rq.Args)
	assert.Equal(t, []any{10, 20}, rq.LimitArgs)
}

func TestRenderCategoriesNeedOneSubqueryEach(t *testing.T) {
	rq := render(t, query.New(scope).Categories("tech", "js"))

	assert.Equal(t, 2, strings.Count(rq.CountSQL, "EXISTS"))
	assert.Contains(t, rq.CountSQL, "r.taxonomy_type = ANY($3::text[])")
	assert.Contains(t, rq.CountSQL, "r.taxonomy_id = $4")
	assert.Contains(t, rq.CountSQL, "r.taxonomy_id = $5")
	require.Len(t, rq.Args, 5)
	assert.Len(t, rq.Args[2], domain.MaxCategoryLevels)
	assert.Equal(t, "tech", rq.Args[3])
	assert.Equal(t, "js", rq.Args[4])
}

func TestRenderAnyOfFieldsShareOneSubquery(t *testing.T) {
	rq := render(t, query.New(scope).Tags("a", "b").Quizzes(7).Types(domain.QuestionTypeMCQ).Statuses(domain.StatusDraft))

	assert.Equal(t, 2, strings.Count(rq.CountSQL, "EXISTS"))
	assert.Contains(t, rq.CountSQL, "r.taxonomy_id = ANY($4::text[])")
	assert.Contains(t, rq.CountSQL, "r.taxonomy_id = ANY($6::text[])")
	assert.Contains(t, rq.CountSQL, "q.question_type = ANY($7::text[])")
	assert.Contains(t, rq.CountSQL, "q.status = ANY($8::text[])")
	assert.Equal(t, []string{"a", "b"}, rq.Args[3])
	assert.Equal(t, []string{"7"}, rq.Args[5])
}

func TestRenderSubstringEscapesPattern(t *testing.T) {
	rq := render(t, query.New(scope).Search("50%_off"))

	assert.Contains(t, rq.CountSQL, "(q.title ILIKE $3 OR q.content ILIKE $3)")
	assert.Equal(t, `%50\%\_off%`, rq.Args[2])
}

func TestRenderRelevance(t *testing.T) {
	rq := render(t, query.New(scope).Search("array closures").SortBy(query.SortRelevance, ""))

	assert.Contains(t, rq.ListSQL, "q.search_vector @@ plainto_tsquery('simple', $3)")
	assert.Contains(t, rq.ListSQL, "ts_rank(q.search_vector, plainto_tsquery('simple', $3))::float8 AS score")
	assert.Contains(t, rq.ListSQL, "ORDER BY score DESC, q.id ASC")
	assert.NotContains(t, rq.CountSQL, "ts_rank")
}

func TestRenderSortDirection(t *testing.T) {
	rq := render(t, query.New(scope).SortBy("title", "asc"))
	assert.Contains(t, rq.ListSQL, "ORDER BY q.title ASC, q.id ASC")
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/query"
	"golang.org/x/sync/errgroup"
)

// textSearchConfig is the PostgreSQL text search configuration used by the
// search_vector column and the query side alike.
const textSearchConfig = "simple"

var linkTypes = map[query.Field][]string{
	query.FieldCategory: {
		string(domain.TaxonomyCategoryLevel1),
		string(domain.TaxonomyCategoryLevel2),
		string(domain.TaxonomyCategoryLevel3),
		string(domain.TaxonomyCategoryLevel4),
	},
	query.FieldTag:  {string(domain.TaxonomyTag)},
	query.FieldQuiz: {string(domain.TaxonomyQuiz)},
}

var columns = map[query.Field]string{
	query.FieldType:   "q.question_type",
	query.FieldStatus: "q.status",
}

var sortColumns = map[string]string{
	query.SortFieldCreatedAt: "q.created_at",
	query.SortFieldUpdatedAt: "q.updated_at",
	query.SortFieldTitle:     "q.title",
	query.SortFieldPoints:    "q.points",
	query.SortFieldStatus:    "q.status",
	query.SortFieldType:      "q.question_type",
	query.SortFieldScore:     "score",
	query.SortFieldID:        "q.id",
}

// RenderedQuery is a pipeline rendered to SQL. Both statements share Args;
// ListSQL additionally binds LimitArgs.
type RenderedQuery struct {
	ListSQL   string
	CountSQL  string
	Args      []any
	LimitArgs []any
}

type sqlArgs []any

func (a *sqlArgs) bind(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// RenderQuestionQuery renders the match stage as a WHERE clause over
// questions. Relationship conditions become EXISTS subqueries: one per
// id for all-of matches, one per field for any-of matches.
func RenderQuestionQuery(p query.Pipeline) (RenderedQuery, error) {
	m := p.Match()
	var args sqlArgs
	where := []string{
		"q.user_id = " + args.bind(m.UserID),
		"q.question_bank_id = " + args.bind(m.QuestionBankID),
	}
	score := "0::float8"

	for _, c := range m.Conditions {
		switch c.Op {
		case query.OpAll, query.OpAny:
			types, ok := linkTypes[c.Field]
			if !ok {
				return RenderedQuery{}, fmt.Errorf("render: %s is not a relationship field", c.Field)
			}
			typesArg := args.bind(types)
			if c.Op == query.OpAny {
				where = append(where, existsLink(typesArg, "= ANY("+args.bind(c.Values)+"::text[])"))
				continue
			}
			for _, v := range c.Values {
				where = append(where, existsLink(typesArg, "= "+args.bind(v)))
			}
		case query.OpIn:
			col, ok := columns[c.Field]
			if !ok {
				return RenderedQuery{}, fmt.Errorf("render: %s is not a column field", c.Field)
			}
			where = append(where, col+" = ANY("+args.bind(c.Values)+"::text[])")
		case query.OpContains:
			pattern := args.bind("%" + escapeLike(c.Values[0]) + "%")
			where = append(where, "(q.title ILIKE "+pattern+" OR q.content ILIKE "+pattern+")")
		case query.OpFullText:
			tsq := fmt.Sprintf("plainto_tsquery('%s', %s)", textSearchConfig, args.bind(c.Values[0]))
			where = append(where, "q.search_vector @@ "+tsq)
			score = "ts_rank(q.search_vector, " + tsq + ")::float8"
		default:
			return RenderedQuery{}, fmt.Errorf("render: unsupported operator %q", c.Op)
		}
	}

	order := make([]string, 0, len(p.Sort().Keys))
	for _, k := range p.Sort().Keys {
		col, ok := sortColumns[k.Field]
		if !ok {
			return RenderedQuery{}, fmt.Errorf("render: unsupported sort field %q", k.Field)
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		order = append(order, col+" "+dir)
	}

	whereSQL := strings.Join(where, "\n\t  AND ")
	n := len(args)
	list := fmt.Sprintf(`SELECT q.id, q.source_question_id, q.question_type, q.title, q.content, q.points,
	       q.status, q.created_at, q.updated_at, %s AS score
	FROM questions q
	WHERE %s
	ORDER BY %s
	LIMIT $%d OFFSET $%d`, score, whereSQL, strings.Join(order, ", "), n+1, n+2)
	count := "SELECT count(*) FROM questions q\n\tWHERE " + whereSQL

	return RenderedQuery{
		ListSQL:   list,
		CountSQL:  count,
		Args:      args,
		LimitArgs: []any{p.Limit().N, p.Skip().N},
	}, nil
}

func existsLink(typesArg, idPredicate string) string {
	return `EXISTS (SELECT 1 FROM question_taxonomy_relationships r
	          WHERE r.question_id = q.id AND r.taxonomy_type = ANY(` + typesArg + `::text[])
	            AND r.taxonomy_id ` + idPredicate + `)`
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// QueryRepository executes listing pipelines against PostgreSQL.
type QueryRepository struct {
	pool *pgxpool.Pool
}

// NewQueryRepository creates a new QueryRepository.
func NewQueryRepository(pool *pgxpool.Pool) *QueryRepository {
	return &QueryRepository{pool: pool}
}

// Query runs the page and the total count concurrently on the pool. It
// never joins a caller's transaction: a pgx.Tx serves one query at a time.
func (r *QueryRepository) Query(ctx context.Context, p query.Pipeline) outcome.Outcome[model.Page[model.QuestionView]] {
	rq, err := RenderQuestionQuery(p)
	if err != nil {
		return outcome.FailureFrom[model.Page[model.QuestionView]](outcome.CodeInvalidQuery, err)
	}

	var (
		items []model.QuestionView
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, rq.CountSQL, rq.Args...).Scan(&total)
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, rq.ListSQL, append(append([]any{}, rq.Args...), rq.LimitArgs...)...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v model.QuestionView
			if err := rows.Scan(&v.ID, &v.SourceQuestionID, &v.Type, &v.Title, &v.Content, &v.Points,
				&v.Status, &v.CreatedAt, &v.UpdatedAt, &v.Score); err != nil {
				return err
			}
			v.CreatedAt = v.CreatedAt.UTC()
			v.UpdatedAt = v.UpdatedAt.UTC()
			items = append(items, v)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return fail[model.Page[model.QuestionView]]("query questions", err)
	}
	return outcome.Success(model.NewPage(items, p.Page(), p.Limit().N, total))
}

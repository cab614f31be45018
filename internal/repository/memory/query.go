package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/query"
)

// QueryRepository implements port.QuestionQueryRepository by evaluating the
// pipeline stages over the stored questions.
type QueryRepository struct {
	st *Store
}

// Query returns the listing repository of the store.
func (st *Store) Query() *QueryRepository { return &QueryRepository{st: st} }

type scored struct {
	q     domain.QuestionState
	score float64
}

func (r *QueryRepository) Query(ctx context.Context, p query.Pipeline) outcome.Outcome[model.Page[model.QuestionView]] {
	r.st.calls.queries.Add(1)
	m := p.Match()

	var matched []scored
	r.st.read(ctx, func(s *state) {
		for _, q := range s.questions {
			if q.Key.UserID != m.UserID || q.Key.QuestionBankID != m.QuestionBankID {
				continue
			}
			score, ok := matchAll(q, linkIndex(s.relationships[q.ID]), m.Conditions)
			if ok {
				matched = append(matched, scored{q: q, score: score})
			}
		}
	})

	keys := p.Sort().Keys
	slices.SortFunc(matched, func(a, b scored) int {
		for _, k := range keys {
			c := compareField(a, b, k.Field)
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	total := int64(len(matched))
	start := min(p.Skip().N, len(matched))
	end := min(start+p.Limit().N, len(matched))

	items := make([]model.QuestionView, 0, end-start)
	for _, sq := range matched[start:end] {
		v := model.NewQuestionView(sq.q)
		v.Score = sq.score
		items = append(items, v)
	}
	return outcome.Success(model.NewPage(items, p.Page(), p.Limit().N, total))
}

type links map[query.Field]map[string]struct{}

func linkIndex(rels []domain.TaxonomyRelationship) links {
	idx := links{}
	add := func(f query.Field, id string) {
		if idx[f] == nil {
			idx[f] = map[string]struct{}{}
		}
		idx[f][id] = struct{}{}
	}
	for _, rel := range rels {
		switch {
		case rel.TaxonomyType.IsCategory():
			add(query.FieldCategory, rel.TaxonomyID)
		case rel.TaxonomyType == domain.TaxonomyTag:
			add(query.FieldTag, rel.TaxonomyID)
		case rel.TaxonomyType == domain.TaxonomyQuiz:
			add(query.FieldQuiz, rel.TaxonomyID)
		}
	}
	return idx
}

func matchAll(q domain.QuestionState, l links, conds []query.Condition) (float64, bool) {
	var score float64
	for _, c := range conds {
		switch c.Op {
		case query.OpAll:
			for _, v := range c.Values {
				if _, ok := l[c.Field][v]; !ok {
					return 0, false
				}
			}
		case query.OpAny:
			if !slices.ContainsFunc(c.Values, func(v string) bool {
				_, ok := l[c.Field][v]
				return ok
			}) {
				return 0, false
			}
		case query.OpIn:
			if !slices.Contains(c.Values, columnValue(q, c.Field)) {
				return 0, false
			}
		case query.OpContains:
			needle := strings.ToLower(c.Values[0])
			if !strings.Contains(strings.ToLower(q.Title), needle) &&
				!strings.Contains(strings.ToLower(q.Content), needle) {
				return 0, false
			}
		case query.OpFullText:
			score = textScore(q, c.Values[0])
			if score == 0 {
				return 0, false
			}
		default:
			return 0, false
		}
	}
	return score, true
}

func columnValue(q domain.QuestionState, f query.Field) string {
	switch f {
	case query.FieldType:
		return string(q.Type)
	case query.FieldStatus:
		return string(q.Status)
	}
	return ""
}

// textScore requires every search term to appear as a word of the title or
// content. Title hits weigh twice as much as content hits.
func textScore(q domain.QuestionState, search string) float64 {
	title := wordSet(q.Title)
	content := wordSet(q.Content)
	var score float64
	for _, term := range strings.Fields(strings.ToLower(search)) {
		_, inTitle := title[term]
		_, inContent := content[term]
		if !inTitle && !inContent {
			return 0
		}
		if inTitle {
			score += 2
		}
		if inContent {
			score++
		}
	}
	return score
}

func wordSet(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r == '-' || r == '_' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func compareField(a, b scored, field string) int {
	switch field {
	case query.SortFieldCreatedAt:
		return a.q.CreatedAt.Compare(b.q.CreatedAt)
	case query.SortFieldUpdatedAt:
		return a.q.UpdatedAt.Compare(b.q.UpdatedAt)
	case query.SortFieldTitle:
		return cmp.Compare(a.q.Title, b.q.Title)
	case query.SortFieldPoints:
		return cmp.Compare(a.q.Points, b.q.Points)
	case query.SortFieldStatus:
		return cmp.Compare(a.q.Status, b.q.Status)
	case query.SortFieldType:
		return cmp.Compare(a.q.Type, b.q.Type)
	case query.SortFieldScore:
		return cmp.Compare(a.score, b.score)
	case query.SortFieldID:
		return cmp.Compare(a.q.ID.String(), b.q.ID.String())
	}
	return 0
}

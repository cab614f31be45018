package service

import (
	"context"
	"testing"
	"time"

	"github.com/stemsi/qbank-core/internal/auth"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/mediator"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRequest() model.SeedBankRequest {
	return model.SeedBankRequest{
		UserID:       4004,
		BankID:       5005,
		BankName:     "Backend",
		Categories:   []domain.Category{{ID: "tech"}, {ID: "go"}},
		Tags:         []domain.Tag{{ID: "goroutines"}},
		Difficulties: []domain.DifficultyLevel{{Level: "easy", NumericValue: 1}},
	}
}

func provisioner(f *fixture) *BankProvisioningService {
	return NewBankProvisioningService(Deps{
		Tx:         f.st,
		Banks:      f.st.Banks(),
		Taxonomies: f.st.Taxonomies(),
		Now:        func() time.Time { return f.now },
	})
}

func TestProvisionCreatesUsableBank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := provisioner(f).Provision(ctx, seedRequest())
	require.True(t, res.IsSuccess(), res.Message())

	owns := f.st.Banks().ValidateOwnership(ctx, 4004, 5005)
	assert.True(t, owns.Value())

	cmd := mcqCommand()
	cmd.TenantScope = model.TenantScope{UserID: 4004, QuestionBankID: 5005}
	cmd.Taxonomy = domain.Taxonomy{
		Categories: domain.Categories{Level1: &domain.CategoryRef{ID: "tech"}, Level2: &domain.CategoryRef{ID: "go"}},
		Tags:       []domain.TagRef{{ID: "goroutines"}},
		Difficulty: domain.DifficultyRef{Level: "easy"},
	}
	caller := auth.WithIdentity(ctx, auth.Identity{UserID: 4004})
	up := mediator.Send(caller, f.d, cmd)
	require.True(t, up.IsSuccess(), up.Message())
	assert.Equal(t, 4, up.Value().RelationshipCount)
}

func TestProvisionAgainReplacesVocabulary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := provisioner(f)

	require.True(t, svc.Provision(ctx, seedRequest()).IsSuccess())

	req := seedRequest()
	req.Tags = []domain.Tag{{ID: "channels"}}
	require.True(t, svc.Provision(ctx, req).IsSuccess())

	reg := f.st.Banks().Get(ctx, 4004)
	require.True(t, reg.IsSuccess())
	assert.Len(t, reg.Value().Banks, 1)

	valid := f.st.Taxonomies().ValidateTaxonomyReferences(ctx, 4004, 5005, []string{"goroutines"})
	assert.False(t, valid.Value())
	valid = f.st.Taxonomies().ValidateTaxonomyReferences(ctx, 4004, 5005, []string{"channels"})
	assert.True(t, valid.Value())
}

func TestProvisionAddsBankToExistingRegistry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := seedRequest()
	req.UserID = userID
	require.True(t, provisioner(f).Provision(ctx, req).IsSuccess())

	reg := f.st.Banks().Get(ctx, userID)
	require.True(t, reg.IsSuccess())
	assert.Len(t, reg.Value().Banks, 3)
	assert.True(t, reg.Value().IsActive(5005))
}

func TestProvisionRejectsMissingBank(t *testing.T) {
	f := newFixture(t)
	req := seedRequest()
	req.BankID = 0

	res := provisioner(f).Provision(context.Background(), req)
	assert.Equal(t, outcome.CodeInvalidCommand, res.Code())

	reg := f.st.Banks().Get(context.Background(), 4004)
	assert.Equal(t, outcome.CodeNotFound, reg.Code())
}

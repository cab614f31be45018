//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/app"
	"github.com/stemsi/qbank-core/internal/auth"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/service"
)

const (
	defaultBaseURL = "http://localhost:8080/api/v1"
	e2eUserID      = int64(91001)
	e2eBankID      = int64(92002)
)

var (
	baseURL   string
	userToken string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	// 1. Reset and seed the test tenant
	if err := setupTenant(); err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}

	// 2. Run Tests
	os.Exit(m.Run())
}

func setupTenant() error {
	ctx := context.Background()
	cfg := config.Load()
	cfg.StoreDriver = config.StoreDriverPostgres

	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close(ctx)

	// Cleanup previous test data (order matters due to FK)
	for _, table := range []string{"question_change_log", "question_taxonomy_relationships", "questions"} {
		if _, err := conn.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", table), e2eUserID); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}

	storage, err := app.OpenStorage(ctx, cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer storage.Close()

	res := service.NewBankProvisioningService(storage.Deps).Provision(ctx, model.SeedBankRequest{
		UserID:     e2eUserID,
		BankID:     e2eBankID,
		BankName:   "E2E Bank",
		Categories: []domain.Category{{ID: "tech"}, {ID: "js"}},
		Tags:       []domain.Tag{{ID: "js-arrays"}, {ID: "closures"}},
		Quizzes:    []domain.Quiz{{ID: 7, Name: "Week 1"}},
		Difficulties: []domain.DifficultyLevel{
			{Level: "easy", NumericValue: 1},
			{Level: "hard", NumericValue: 3},
		},
	})
	if res.IsFailure() {
		return fmt.Errorf("provision bank: %s", res.Message())
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, time.Hour)
	if err != nil {
		return err
	}
	userToken, err = tokens.Generate(e2eUserID)
	return err
}

func questionsPath(suffix string) string {
	return fmt.Sprintf("/users/%d/question-banks/%d/questions%s", e2eUserID, e2eBankID, suffix)
}

func mcqBody(title string) map[string]any {
	return map[string]any{
		"type":    "MCQ",
		"title":   title,
		"content": "Which method appends an element to a JavaScript array?",
		"points":  2,
		"taxonomy": map[string]any{
			"categories":       map[string]any{"level_1": map[string]any{"id": "tech"}, "level_2": map[string]any{"id": "js"}},
			"tags":             []map[string]any{{"id": "js-arrays"}},
			"quizzes":          []map[string]any{{"quiz_id": 7}},
			"difficulty_level": map[string]any{"level": "easy"},
		},
		"mcq_data": map[string]any{
			"options": []map[string]any{
				{"id": "a", "text": "push", "is_correct": true},
				{"id": "b", "text": "pop"},
			},
		},
	}
}

func TestE2EFlow(t *testing.T) {
	// Step 1: Create a question
	t.Run("UpsertCreates", func(t *testing.T) {
		resp, err := send(http.MethodPut, questionsPath("/Q-abc"), mcqBody("Array methods"), userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data struct {
				Question model.QuestionResponse `json:"question"`
			} `json:"data"`
		}
		decodeJSON(t, resp, &body)
		if body.Data.Question.Operation != model.OperationCreated {
			t.Fatalf("operation %q", body.Data.Question.Operation)
		}
		if body.Data.Question.RelationshipCount != 5 {
			t.Errorf("expected 5 relationships, got %d", body.Data.Question.RelationshipCount)
		}
	})

	// Step 2: Same business key updates in place
	t.Run("UpsertUpdates", func(t *testing.T) {
		resp, err := send(http.MethodPut, questionsPath("/Q-abc"), mcqBody("Array methods (revised)"), userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 3: Unknown taxonomy is rejected
	t.Run("UnknownTaxonomy", func(t *testing.T) {
		body := mcqBody("Closures")
		body["taxonomy"].(map[string]any)["tags"] = []map[string]any{{"id": "rust"}}
		resp, err := send(http.MethodPut, questionsPath("/Q-def"), body, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 4: Listing with filters and search
	t.Run("ListAndSearch", func(t *testing.T) {
		q := url.Values{}
		q.Add("category", "tech")
		q.Add("category", "js")
		q.Add("tag", "js-arrays")
		q.Set("q", "array")
		q.Set("sort_by", "relevance")
		resp, err := send(http.MethodGet, questionsPath("?"+q.Encode()), nil, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data struct {
				Questions []model.QuestionView `json:"questions"`
			} `json:"data"`
			Pagination struct {
				TotalItems int64 `json:"total_items"`
			} `json:"pagination"`
		}
		decodeJSON(t, resp, &body)
		if body.Pagination.TotalItems != 1 || len(body.Data.Questions) != 1 {
			t.Fatalf("expected one match, got %d", body.Pagination.TotalItems)
		}
		if body.Data.Questions[0].Score <= 0 {
			t.Errorf("expected a relevance score")
		}
	})

	// Step 5: Lifecycle
	t.Run("PublishArchive", func(t *testing.T) {
		for _, step := range []struct {
			action string
			status int
		}{
			{"/publish", http.StatusOK},
			{"/archive", http.StatusOK},
			{"/publish", http.StatusConflict},
		} {
			resp, err := send(http.MethodPost, questionsPath("/Q-abc"+step.action), nil, userToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != step.status {
				t.Fatalf("%s: status %d: %s", step.action, resp.StatusCode, readBody(resp))
			}
			resp.Body.Close()
		}
	})

	// Step 6: Detail
	t.Run("Detail", func(t *testing.T) {
		resp, err := send(http.MethodGet, questionsPath("/Q-abc"), nil, userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data struct {
				Question struct {
					Status        domain.QuestionStatus         `json:"status"`
					Relationships []domain.TaxonomyRelationship `json:"relationships"`
				} `json:"question"`
			} `json:"data"`
		}
		decodeJSON(t, resp, &body)
		if body.Data.Question.Status != domain.StatusArchived {
			t.Errorf("expected archived, got %s", body.Data.Question.Status)
		}
		if len(body.Data.Question.Relationships) != 5 {
			t.Errorf("expected 5 relationships, got %d", len(body.Data.Question.Relationships))
		}
	})

	// Step 7: Live change feed
	t.Run("ChangeFeed", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(baseURL, "http") +
			fmt.Sprintf("/users/%d/question-banks/%d/changes?token=%s", e2eUserID, e2eBankID, userToken)
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))

		var ready struct {
			Event string `json:"event"`
		}
		if err := conn.ReadJSON(&ready); err != nil || ready.Event != "ready" {
			t.Fatalf("expected ready, got %q (%v)", ready.Event, err)
		}

		resp, err := send(http.MethodPut, questionsPath("/Q-feed"), mcqBody("Live feed"), userToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status %d", resp.StatusCode)
		}

		var change struct {
			Event  string              `json:"event"`
			Change domain.ChangeRecord `json:"change"`
		}
		if err := conn.ReadJSON(&change); err != nil {
			t.Fatalf("read change: %v", err)
		}
		if change.Event != "change" || change.Change.Key.SourceQuestionID != "Q-feed" {
			t.Errorf("unexpected event %+v", change)
		}
	})

	// Step 8: Another user's token is refused
	t.Run("ForeignToken", func(t *testing.T) {
		tokens, _ := auth.NewTokenService(config.Load().JWTSecret, time.Hour)
		other, _ := tokens.Generate(e2eUserID + 1)
		resp, err := send(http.MethodGet, questionsPath(""), nil, other)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})
}

// Helpers

func send(method, path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("json decode: %v", err)
	}
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/stemsi/qbank-core/internal/app"
	"github.com/stemsi/qbank-core/internal/auth"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/logger"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/service"
	"golang.org/x/term"
)

func main() {
	var (
		userID int64
		bankID int64
		name   string
		file   string
	)
	flag.Int64Var(&userID, "user", 0, "Owning user id")
	flag.Int64Var(&bankID, "bank", 0, "Question bank id")
	flag.StringVar(&name, "name", "", "Question bank name")
	flag.StringVar(&file, "file", "", "JSON file with the bank and its taxonomy vocabulary")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	req := defaultRequest()
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("Failed to read seed file")
		}
		req = model.SeedBankRequest{}
		if err := json.Unmarshal(raw, &req); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("Invalid seed file")
		}
	}
	if userID != 0 {
		req.UserID = userID
	}
	if bankID != 0 {
		req.BankID = bankID
	}
	if name != "" {
		req.BankName = name
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	if req.BankName == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("Enter bank name: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		req.BankName = strings.TrimSpace(line)
	}
	if req.UserID == 0 || req.BankID == 0 {
		fmt.Println("Error: -user and -bank are required")
		os.Exit(2)
	}

	ctx := context.Background()

	// ─── Connect Storage ───────────────────────────────────────────────
	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer storage.Close()

	res := service.NewBankProvisioningService(storage.Deps).Provision(ctx, req)
	if res.IsFailure() {
		log.Fatal().Str("code", string(res.Code())).Msg(res.Message())
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token service")
	}
	token, err := tokens.Generate(req.UserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	fmt.Println("=== Question Bank Provisioned ===")
	fmt.Printf("User:  %d\n", req.UserID)
	fmt.Printf("Bank:  %d (%s)\n", req.BankID, req.BankName)
	fmt.Printf("Token: %s\n", token)
}

// defaultRequest is a small vocabulary for local development.
func defaultRequest() model.SeedBankRequest {
	return model.SeedBankRequest{
		UserID:     1001,
		BankID:     2002,
		Categories: []domain.Category{{ID: "tech", Name: "Technology"}, {ID: "js", Name: "JavaScript"}},
		Tags:       []domain.Tag{{ID: "js-arrays", Name: "Arrays"}, {ID: "closures", Name: "Closures"}},
		Quizzes:    []domain.Quiz{{ID: 7, Name: "Week 1"}},
		Difficulties: []domain.DifficultyLevel{
			{Level: "easy", NumericValue: 1},
			{Level: "medium", NumericValue: 2},
			{Level: "hard", NumericValue: 3},
		},
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prepsio/testline-backend/internal/clock"
	"github.com/prepsio/testline-backend/internal/config"
	"github.com/prepsio/testline-backend/internal/database"
	"github.com/prepsio/testline-backend/internal/logger"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/repository"
	"github.com/prepsio/testline-backend/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo dataset: 10 examinees, one test scheduled for today with a
// generous window, and 5 questions across two subjects.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	loc, err := clock.LoadLocation(cfg.ReferenceTimezone)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid reference timezone")
	}
	clk := clock.System(loc)

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	testService := service.NewTestService(testRepo, questionRepo, rdb, clk, log)

	fmt.Println("=== Seeding Demo Data ===")

	// ─── Users ─────────────────────────────────────────────────────────
	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	names := []string{
		"Aarav Sharma", "Diya Patel", "Vihaan Reddy", "Ananya Iyer", "Arjun Mehta",
		"Ishita Nair", "Kabir Malhotra", "Meera Krishnan", "Rohan Gupta", "Sanya Verma",
	}

	userCount := 0
	for i, name := range names {
		u := &model.User{
			Name:         name,
			Email:        fmt.Sprintf("demo%d@testline.local", i+1),
			PasswordHash: string(hash),
		}
		if err := userRepo.Create(ctx, u); err != nil {
			fmt.Printf("Error creating user %s: %v\n", u.Email, err)
			continue
		}
		userCount++
	}
	fmt.Printf("Created %d/%d users (password: demo1234)\n", userCount, len(names))

	// ─── Test ──────────────────────────────────────────────────────────
	now := clk.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	test, err := testService.CreateTest(ctx, &model.CreateTestRequest{
		Title:       "Demo Aptitude Test",
		Description: "Seeded test for local development.",
		Instructions: []string{
			"Each question has exactly one correct option.",
			"Wrong answers carry negative marks.",
			"The test submits itself when the timer runs out.",
		},
		DurationMinutes: 30,
		MaxMarks:        20,
		TestDate:        today,
		StartTime:       today.Add(8 * time.Hour),
		EndTime:         today.Add(22 * time.Hour),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo test")
	}
	fmt.Printf("Created test %s (%s)\n", test.Title, test.ID)

	// ─── Questions ─────────────────────────────────────────────────────
	questions := []model.AddQuestionRequest{
		{
			QuestionText:  "What is 15% of 240?",
			Options:       []string{"30", "36", "42", "48"},
			CorrectAnswer: "36",
			Subject:       "Quantitative Aptitude",
			Topics:        []string{"Percentages"},
			Difficulty:    "easy",
		},
		{
			QuestionText:  "A train covers 180 km in 2.5 hours. What is its average speed?",
			Options:       []string{"64 km/h", "70 km/h", "72 km/h", "76 km/h"},
			CorrectAnswer: "72 km/h",
			Subject:       "Quantitative Aptitude",
			Topics:        []string{"Speed and Distance"},
			Difficulty:    "medium",
		},
		{
			QuestionText:  "If CODE is written as DPEF, how is GATE written?",
			Options:       []string{"HBUF", "HAUE", "FBUF", "HBVF"},
			CorrectAnswer: "HBUF",
			Subject:       "Logical Reasoning",
			Topics:        []string{"Coding-Decoding"},
			Difficulty:    "easy",
		},
		{
			QuestionText:  "Which number completes the series: 2, 6, 12, 20, 30, ?",
			Options:       []string{"40", "42", "44", "46"},
			CorrectAnswer: "42",
			Subject:       "Logical Reasoning",
			Topics:        []string{"Number Series"},
			Difficulty:    "medium",
		},
		{
			QuestionText:  "The compound interest on Rs. 10000 at 10% p.a. for 2 years is:",
			Options:       []string{"Rs. 2000", "Rs. 2100", "Rs. 2200", "Rs. 2400"},
			CorrectAnswer: "Rs. 2100",
			Subject:       "Quantitative Aptitude",
			Topics:        []string{"Compound Interest", "Percentages"},
			Difficulty:    "hard",
		},
	}

	questionCount := 0
	for i := range questions {
		if _, err := testService.AddQuestion(ctx, test.ID, &questions[i]); err != nil {
			fmt.Printf("Error adding question %d: %v\n", i+1, err)
			continue
		}
		questionCount++
	}
	fmt.Printf("Added %d/%d questions\n", questionCount, len(questions))

	fmt.Println("\nSeed completed!")
}

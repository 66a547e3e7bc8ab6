package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/timetrailhk/geohunt/internal/geohunt"
)

// demoTrail is the built-in Kowloon walking demo.
func demoTrail() geohunt.Trail {
	return geohunt.Trail{
		Name:        "時光之旅",
		City:        "Hong Kong",
		Description: "九龍寨城歷史探索的測試路線。",
		Locations: []geohunt.Location{
			{
				ID:       "test-1",
				Name:     "測試起點",
				Lat:      22.3191,
				Lng:      114.1694,
				Range:    50,
				Title:    "歡迎來到時光之旅",
				Story:    "這是一個測試地點，想像這裡是九龍寨城的入口...",
				Question: "請觀察四周，這裡是什麼類型的地點？",
				Answer:   "公園",
				Hint:     "看看周圍的綠化環境",
			},
			{
				ID:       "test-2",
				Name:     "測試中點",
				Lat:      22.3195,
				Lng:      114.1702,
				Range:    50,
				Title:    "歷史的痕跡",
				Story:    "繼續往前走，這裡曾經是古老的市集...",
				Question: "根據故事，這裡曾經是什麼場所？",
				Answer:   "市集",
				Hint:     "回想故事中提到的商業活動",
			},
			{
				ID:       "test-3",
				Name:     "測試終點",
				Lat:      22.3200,
				Lng:      114.1710,
				Range:    50,
				Title:    "探索完成",
				Story:    "恭喜完成測試！這裡是虛擬的終點站...",
				Question: "您對這次探索體驗滿意嗎？",
				Answer:   "滿意",
				Hint:     "這是最後一題，輕鬆回答即可",
			},
		},
	}
}

// SeedDemo creates the demo trail if the catalog is empty. Idempotent.
func SeedDemo(ctx context.Context, logger *slog.Logger, trails *TrailStore) error {
	n, err := trails.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting trails: %w", err)
	}
	if n > 0 {
		return nil
	}

	if _, err := trails.Create(ctx, demoTrail()); err != nil {
		return fmt.Errorf("creating demo trail: %w", err)
	}
	logger.Info("demo trail seeded")
	return nil
}

// SeedAdmin creates the bootstrap admin account when the admins table is
// empty and credentials are configured. Idempotent.
func SeedAdmin(ctx context.Context, logger *slog.Logger, db *sql.DB, email, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO admins (email, password_hash) VALUES (?, ?)
	`, email, string(hash)); err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}

	logger.Info("bootstrap admin created", "email", email)
	return nil
}

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"modguard/model"
)

// Load loads process configuration from environment variables.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Info: .env file not found, relying on environment variables")
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable not set")
	}

	appID := os.Getenv("APP_ID")
	if appID == "" {
		return nil, fmt.Errorf("APP_ID environment variable not set")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/moderation.db"
	}

	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "data/rules.yaml"
	}

	cfg := &model.Config{
		BotToken:       token,
		AppID:          appID,
		AuditChannelID: os.Getenv("AUDIT_CHANNEL_ID"),
		AdminRoleIDs:   splitIDs(os.Getenv("ADMIN_ROLE_IDS")),
		MutedRoleID:    os.Getenv("MUTED_ROLE_ID"),
		VerifiedRoleID: os.Getenv("VERIFIED_ROLE_ID"),
		NicknameRuleID: os.Getenv("NICKNAME_RULE_ID"),
		DBPath:         dbPath,
		CatalogPath:    catalogPath,
		Engine: model.EngineConfig{
			SweepInterval:    envDuration("SWEEP_INTERVAL", 30*time.Second),
			MaxAttempts:      envInt("MAX_ACTION_ATTEMPTS", 5),
			ActivitySweepHrs: envHours("ACTIVITY_SWEEP_HOURS", []int{5, 13, 21}),
			MinMemberCount:   envInt("ACTIVITY_MIN_MEMBERS", 80),
			InactiveDays:     envInt("ACTIVITY_INACTIVE_DAYS", 180),
			ExcludedRoleIDs:  splitIDs(os.Getenv("ACTIVITY_EXCLUDED_ROLE_IDS")),
			ExcludedUserIDs:  splitIDs(os.Getenv("ACTIVITY_EXCLUDED_USER_IDS")),
		},
	}

	if cfg.MutedRoleID == "" {
		return nil, fmt.Errorf("MUTED_ROLE_ID environment variable not set")
	}

	return cfg, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("Warning: invalid %s value %q, using default %d\n", key, s, def)
		return def
	}
	return n
}

// envHours parses a comma-separated list of hours of the day (0-23).
func envHours(key string, def []int) []int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	parts := strings.Split(s, ",")
	hours := make([]int, 0, len(parts))
	for _, p := range parts {
		h, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || h < 0 || h > 23 {
			fmt.Printf("Warning: invalid %s value %q, using default %v\n", key, s, def)
			return def
		}
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

func envDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		fmt.Printf("Warning: invalid %s value %q, using default %s\n", key, s, def)
		return def
	}
	return d
}

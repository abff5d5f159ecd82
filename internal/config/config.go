package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string // empty disables persistence

	RoundTimeout   time.Duration
	ChargeTimeout  time.Duration
	StartCountdown time.Duration
	ResultDelay    time.Duration
	FillTimeout    time.Duration
	EvictAfter     time.Duration

	DuelTargetWins int
	DuelMaxRounds  int
	RoyaleCapacity int
	RoyaleLives    int
}

// Load reads configuration from the environment, with .env as a convenience
// for local runs. Everything has a sane default except DATABASE_URL, which
// is genuinely optional: without it rounds simply aren't persisted.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:     envStr("APP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RoundTimeout:   envSeconds("ROUND_TIMEOUT_SEC", 30),
		ChargeTimeout:  envSeconds("CHARGE_TIMEOUT_SEC", 15),
		StartCountdown: envSeconds("START_COUNTDOWN_SEC", 5),
		ResultDelay:    envSeconds("RESULT_DELAY_SEC", 3),
		FillTimeout:    envSeconds("FILL_TIMEOUT_SEC", 120),
		EvictAfter:     envSeconds("EVICT_AFTER_SEC", 30),

		DuelTargetWins: envInt("DUEL_TARGET_WINS", 3),
		DuelMaxRounds:  envInt("DUEL_MAX_ROUNDS", 5),
		RoyaleCapacity: envInt("ROYALE_CAPACITY", 6),
		RoyaleLives:    envInt("ROYALE_LIVES", 1),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}

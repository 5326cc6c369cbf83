// internal/config/config.go
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// nolint: lll
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Port        int    `envconfig:"PORT" default:"8080"`

	DiscordToken         string `envconfig:"DISCORD_TOKEN" required:"true"`
	DiscordApplicationID string `envconfig:"DISCORD_APPLICATION_ID"`
	DiscordGuildID       string `envconfig:"DISCORD_GUILD_ID"`

	OpenAIAPIKey         string `envconfig:"OPENAI_API_KEY"`
	OpenAIChatModel      string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-3.5-turbo"`
	OpenAIEmbeddingModel string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions  int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`

	MinPostScore    float64 `envconfig:"MIN_POST_SCORE" default:"0.75"`
	MaxUsesPerDay   int     `envconfig:"MAX_USES_PER_DAY" default:"20"`
	AdminUserID     string  `envconfig:"ADMIN_USER_ID"`
	MaxPromptLength int     `envconfig:"MAX_PROMPT_LENGTH" default:"1000"`

	RedisAddress  string `envconfig:"REDIS_ADDRESS"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	Web3Provider              string `envconfig:"WEB3_PROVIDER" default:"https://sepolia.base.org"`
	MatchContractAddress      string `envconfig:"MATCH_CONTRACT_ADDRESS"`
	TournamentContractAddress string `envconfig:"TOURNAMENT_CONTRACT_ADDRESS"`

	ChallengeTTL time.Duration `envconfig:"CHALLENGE_TTL" default:"24h"`
	CallTimeout  time.Duration `envconfig:"CALL_TIMEOUT" default:"30s"`

	FrontpageURL  string `envconfig:"FRONTPAGE_URL"`
	TournamentURL string `envconfig:"TOURNAMENT_URL"`

	GamesConfigPath string `envconfig:"GAMES_CONFIG_PATH" default:"."`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unable to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.MinPostScore < -1 || c.MinPostScore > 1:
		return errors.Errorf("MIN_POST_SCORE must be within [-1, 1], got %v", c.MinPostScore)
	case c.MaxUsesPerDay < 1:
		return errors.Errorf("MAX_USES_PER_DAY must be positive, got %d", c.MaxUsesPerDay)
	case c.MaxPromptLength < 1:
		return errors.Errorf("MAX_PROMPT_LENGTH must be positive, got %d", c.MaxPromptLength)
	case c.EmbeddingDimensions < 1:
		return errors.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDimensions)
	case c.ChallengeTTL <= 0:
		return errors.Errorf("CHALLENGE_TTL must be positive, got %v", c.ChallengeTTL)
	case c.CallTimeout <= 0:
		return errors.Errorf("CALL_TIMEOUT must be positive, got %v", c.CallTimeout)
	}
	return nil
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Session  SessionConfig
	MVP      MVPConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	Version            string
}

type DatabaseConfig struct {
	Connection string // empty disables stage run persistence
}

type APIKeys struct {
	BrightDataToken   string
	BrightDataZone    string
	OpenAI            string
	GoogleGemini      string
	AcontextAPIKey    string
	AcontextBaseURL   string
	AcontextProjectID string
}

type AIConfig struct {
	LLMProvider    string // "openai", "gemini", "ollama" or "none"
	LLMModel       string
	OpenAIBaseURL  string
	OllamaBaseURL  string
	Timeout        time.Duration
	ScraperTimeout time.Duration
}

type SessionConfig struct {
	Store string // "memory" or "redis"
	TTL   time.Duration
}

type MVPConfig struct {
	TemplateDir      string
	InstallCommand   string
	DevCommand       string
	Host             string
	PortStart        int
	PortEnd          int
	StartGrace       time.Duration
	StopTimeout      time.Duration
	ScreenshotDir    string
	ScreenshotPrefix string
	ActionbookBinary string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			Version:            getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			BrightDataToken:   getEnv("BRIGHT_DATA_API_TOKEN", ""),
			BrightDataZone:    getEnv("BRIGHT_DATA_ZONE", "serp_api1"),
			OpenAI:            getEnv("OPENAI_API_KEY", ""),
			GoogleGemini:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			AcontextAPIKey:    getEnv("ACONTEXT_API_KEY", ""),
			AcontextBaseURL:   getEnv("ACONTEXT_BASE_URL", "https://api.acontext.io"),
			AcontextProjectID: getEnv("ACONTEXT_PROJECT_ID", "default"),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "openai"),
			LLMModel:       getEnv("LLM_MODEL", ""),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			ScraperTimeout: getEnvAsDuration("SCRAPER_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			Store: getEnv("SESSION_STORE", "memory"),
			TTL:   getEnvAsDuration("SESSION_TTL", 0),
		},
		MVP: MVPConfig{
			TemplateDir:      getEnv("MVP_TEMPLATE_DIR", "../mvp-template"),
			InstallCommand:   getEnv("MVP_INSTALL_COMMAND", "npm install"),
			DevCommand:       getEnv("MVP_DEV_COMMAND", "npm run dev -- --port {port} --strictPort"),
			Host:             getEnv("MVP_HOST", "localhost"),
			PortStart:        getEnvAsInt("MVP_PORT_START", 4000),
			PortEnd:          getEnvAsInt("MVP_PORT_END", 4099),
			StartGrace:       getEnvAsDuration("MVP_START_GRACE", 3*time.Second),
			StopTimeout:      getEnvAsDuration("MVP_STOP_TIMEOUT", 5*time.Second),
			ScreenshotDir:    getEnv("SCREENSHOT_DIR", "public/screenshots"),
			ScreenshotPrefix: getEnv("SCREENSHOT_URL_PREFIX", "/screenshots"),
			ActionbookBinary: getEnv("ACTIONBOOK_BINARY", "actionbook"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("5s") or plain seconds ("5").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

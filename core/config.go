package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		DisableReqLogs            bool
		AllowOrigins              []string
	}

	databaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Enabled  bool
		Address  string
		Password string
		DB       int
	}

	llmConfig struct {
		APIKey        string
		BaseURL       string
		Model         string
		Temperature   float64
		HistoryWindow int
	}

	chatConfig struct {
		TempSessionTTL      time.Duration
		MaxSessionDuration  time.Duration
		InactivityTimeout   time.Duration
		CompletionGrace     time.Duration
		CheckInterval       time.Duration
		CompletionThreshold float64
	}

	logConfig struct {
		Level string
		Dir   string
	}

	Config struct {
		AppName         string
		Build           string
		Env             string
		Debug           bool
		TestMode        bool
		SecretKey       string
		WorkDir         string
		FrontendBaseURL string
		DefaultFromName string
		DefaultFromAddr string
		Timezone        string
		RollbarToken    string
		SendgridApiKey  string
		Server          serverConfig
		Database        databaseConfig
		Redis           redisConfig
		LLM             llmConfig
		Chat            chatConfig
		Log             logConfig
		location        *time.Location
	}
)

// NewConfig loads the configuration from defaults, an optional dotenv file and the environment.
// ENV selects the environment: DEV (local; default), TEST, QA, PROD.
// Variables are prefixed with the environment, eg. PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Utulivu")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "k2%l0s!v9x_8+q&c1m@h4t$f7j)e#p(z3u^w6b*n5r=y-a")
	v.SetDefault("workDir", ".")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Utulivu")
	v.SetDefault("defaultFromAddr", "noreply@localhost")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.allowOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "utulivu")
	v.SetDefault("database.user", "utulivu")
	v.SetDefault("database.password", "utulivu")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.baseURL", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.historyWindow", 20)

	v.SetDefault("chat.tempSessionTTL", 30*time.Minute)
	v.SetDefault("chat.maxSessionDuration", 30*time.Minute)
	v.SetDefault("chat.inactivityTimeout", 10*time.Minute)
	v.SetDefault("chat.completionGrace", time.Minute)
	v.SetDefault("chat.checkInterval", time.Minute)
	v.SetDefault("chat.completionThreshold", 0.6)

	v.SetDefault("log.level", "debug")
	v.SetDefault("log.dir", "")

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		AppName:         v.GetString("appName"),
		Build:           v.GetString("build"),
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		WorkDir:         v.GetString("workDir"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromName: v.GetString("defaultFromName"),
		DefaultFromAddr: v.GetString("defaultFromAddr"),
		Timezone:        v.GetString("timezone"),
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		Server: serverConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
			AllowOrigins:              v.GetStringSlice("server.allowOrigins"),
		},
		Database: databaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: redisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		LLM: llmConfig{
			APIKey:        v.GetString("llm.apiKey"),
			BaseURL:       v.GetString("llm.baseURL"),
			Model:         v.GetString("llm.model"),
			Temperature:   v.GetFloat64("llm.temperature"),
			HistoryWindow: v.GetInt("llm.historyWindow"),
		},
		Chat: chatConfig{
			TempSessionTTL:      v.GetDuration("chat.tempSessionTTL"),
			MaxSessionDuration:  v.GetDuration("chat.maxSessionDuration"),
			InactivityTimeout:   v.GetDuration("chat.inactivityTimeout"),
			CompletionGrace:     v.GetDuration("chat.completionGrace"),
			CheckInterval:       v.GetDuration("chat.checkInterval"),
			CompletionThreshold: v.GetFloat64("chat.completionThreshold"),
		},
		Log: logConfig{
			Level: v.GetString("log.level"),
			Dir:   v.GetString("log.dir"),
		},
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %q, falling back to UTC", conf.Timezone)
		loc = time.UTC
	}
	conf.location = loc
	return conf
}

// Address returns the database "host:port".
func (c databaseConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// DefaultFromEmail returns the sender address used on outgoing emails.
func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

// Location returns the timezone used to decide what "today" is.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

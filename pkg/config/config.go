// Package config provides configuration management for the bot.
// It loads environment variables (optionally from a .env file) and makes them
// available throughout the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string
	OwnerID    string
	DevGuildID string

	// State documents
	DataDir string

	// Lifecycle
	TrialCredits     int64
	DailyReward      int64
	WeeklyReward     int64
	GiveawayEmoji    string
	PurgeChannelID   string
	ProvisionWorkers int
	DockerImage      string

	// MongoDB snapshot mirror
	MongoDBURL string
	DBName     string

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Web Server
	Port string

	// Environment
	Environment string
	LogsDir     string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

var (
	cfg     *Config
	cfgErr  error
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgErr = nil
	cfgOnce = sync.Once{}
}

func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	c := &Config{
		BotToken:   getEnv("botToken", ""),
		OwnerID:    getEnv("ownerId", ""),
		DevGuildID: getEnv("devGuildId", ""),

		DataDir: getEnv("dataDir", "database"),

		GiveawayEmoji:  getEnv("giveawayEmoji", "🎉"),
		PurgeChannelID: getEnv("purgeChannelId", ""),
		DockerImage:    getEnv("dockerImage", ""),

		MongoDBURL: getEnv("mongodbUrl", ""),
		DBName:     getEnv("dbName", "VpsBot"),

		MQTTHost:     getEnv("MQTT_Host", ""),
		MQTTPort:     getEnv("MQTT_Port", "1883"),
		MQTTUser:     getEnv("MQTT_User", ""),
		MQTTPassword: getEnv("MQTT_Password", ""),

		Port: getEnv("PORT", "3000"),

		Environment: getEnv("enviroment", "dev"),
		LogsDir:     getEnv("logsDir", "logs"),

		ErrorWebhook:      getEnv("errorWebhook", ""),
		LogsWebhook:       getEnv("logsWebhook", ""),
		LogsWebServerHook: getEnv("logsWebServerWebhook", ""),
	}

	var err error
	if c.TrialCredits, err = getEnvInt64("trialCredits", 10); err != nil {
		cfgErr = err
		return
	}
	if c.DailyReward, err = getEnvInt64("dailyReward", 50); err != nil {
		cfgErr = err
		return
	}
	if c.WeeklyReward, err = getEnvInt64("weeklyReward", 400); err != nil {
		cfgErr = err
		return
	}
	workers, err := getEnvInt64("provisionWorkers", 2)
	if err != nil {
		cfgErr = err
		return
	}
	c.ProvisionWorkers = int(workers)

	cfg = c
}

// Load initializes the configuration from environment variables.
// It fails when a numeric variable cannot be parsed.
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, cfgErr
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", key)
	}
	return n, nil
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// MirrorEnabled reports whether the MongoDB snapshot mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.MongoDBURL != ""
}

// MQTTEnabled reports whether the MQTT event bus is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTHost != ""
}

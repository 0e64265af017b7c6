package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("botToken", "test-token")
	os.Setenv("ownerId", "42")
	os.Setenv("PORT", "3001")
	os.Setenv("trialCredits", "25")
	defer func() {
		os.Unsetenv("botToken")
		os.Unsetenv("ownerId")
		os.Unsetenv("PORT")
		os.Unsetenv("trialCredits")
	}()

	resetForTesting()

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if config.BotToken != "test-token" {
		t.Errorf("BotToken = %v, want %v", config.BotToken, "test-token")
	}

	if config.OwnerID != "42" {
		t.Errorf("OwnerID = %v, want %v", config.OwnerID, "42")
	}

	if config.Port != "3001" {
		t.Errorf("Port = %v, want %v", config.Port, "3001")
	}

	if config.TrialCredits != 25 {
		t.Errorf("TrialCredits = %v, want %v", config.TrialCredits, 25)
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"trialCredits", "diez"},
		{"dailyReward", "-5"},
		{"provisionWorkers", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			os.Setenv(tt.key, tt.value)
			defer os.Unsetenv(tt.key)

			resetForTesting()
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q returned nil error", tt.key, tt.value)
			}
		})
	}
	resetForTesting()
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	if got := getEnv("TEST_VAR", "default"); got != "test-value" {
		t.Errorf("getEnv() = %v, want %v", got, "test-value")
	}

	if got := getEnv("NON_EXISTENT_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want %v", got, "default")
	}
}

func TestIsProd(t *testing.T) {
	resetForTesting()
	os.Setenv("enviroment", "prod")
	config, _ := Load()

	if !config.IsProd() {
		t.Error("IsProd() should return true when environment is 'prod'")
	}

	resetForTesting()
	os.Setenv("enviroment", "dev")
	config, _ = Load()

	if config.IsProd() {
		t.Error("IsProd() should return false when environment is not 'prod'")
	}

	os.Unsetenv("enviroment")
}

func TestGet(t *testing.T) {
	resetForTesting()

	config := Get()
	if config == nil {
		t.Fatal("Get() returned nil")
	}

	config2 := Get()
	if config != config2 {
		t.Error("Get() should return the same config on subsequent calls")
	}
}

func TestDefaultValues(t *testing.T) {
	for _, key := range []string{"botToken", "dataDir", "trialCredits", "dailyReward", "weeklyReward",
		"giveawayEmoji", "provisionWorkers", "mongodbUrl", "dbName", "MQTT_Host", "MQTT_Port", "PORT", "enviroment"} {
		os.Unsetenv(key)
	}

	resetForTesting()
	config, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if config.DataDir != "database" {
		t.Errorf("DataDir default = %v, want %v", config.DataDir, "database")
	}

	if config.TrialCredits != 10 {
		t.Errorf("TrialCredits default = %v, want %v", config.TrialCredits, 10)
	}

	if config.DailyReward != 50 || config.WeeklyReward != 400 {
		t.Errorf("rewards default = %v/%v, want 50/400", config.DailyReward, config.WeeklyReward)
	}

	if config.GiveawayEmoji != "🎉" {
		t.Errorf("GiveawayEmoji default = %v, want %v", config.GiveawayEmoji, "🎉")
	}

	if config.ProvisionWorkers != 2 {
		t.Errorf("ProvisionWorkers default = %v, want %v", config.ProvisionWorkers, 2)
	}

	if config.MirrorEnabled() {
		t.Error("MirrorEnabled() should be false without mongodbUrl")
	}

	if config.MQTTEnabled() {
		t.Error("MQTTEnabled() should be false without MQTT_Host")
	}

	if config.Port != "3000" {
		t.Errorf("Port default = %v, want %v", config.Port, "3000")
	}
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL  string
	DiscordToken string
	DiscordGuild string
	HTTPAddr     string // default :8080

	// Channel the bot announces in
	LotteryChannelID string

	// FFLogs API credentials + tuning
	FFLogsClientID     string
	FFLogsClientSecret string
	FFLogsAPIURL       string // default https://www.fflogs.com/api/v2/client
	FFLogsTokenURL     string // default https://www.fflogs.com/oauth/token
	MembersPerWave     int
	RequestDelay       time.Duration

	// Session cookie signing secret for the web API
	SessionSecret string
}

func Load() Config {
	get := func(k string, req bool) string {
		v := os.Getenv(k)
		if v == "" && req {
			log.Fatalf("missing env %s", k)
		}
		return v
	}
	getInt := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}

	cfg := Config{
		DatabaseURL:  get("DATABASE_URL", true),
		DiscordToken: get("DISCORD_BOT_TOKEN", true),
		DiscordGuild: get("DISCORD_GUILD_ID", true),
		HTTPAddr:     get("HTTP_ADDR", false),

		LotteryChannelID: get("LOTTERY_CHANNEL_ID", true),

		FFLogsClientID:     get("FFLOGS_CLIENT_ID", true),
		FFLogsClientSecret: get("FFLOGS_CLIENT_SECRET", true),
		FFLogsAPIURL:       get("FFLOGS_API_URL", false),
		FFLogsTokenURL:     get("FFLOGS_TOKEN_URL", false),
		MembersPerWave:     getInt("FFLOGS_MEMBERS_PER_WAVE", 10),
		RequestDelay:       time.Duration(getInt("FFLOGS_REQUEST_DELAY_MS", 1000)) * time.Millisecond,

		SessionSecret: get("SESSION_SECRET", true),
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.FFLogsAPIURL == "" {
		cfg.FFLogsAPIURL = "https://www.fflogs.com/api/v2/client"
	}
	if cfg.FFLogsTokenURL == "" {
		cfg.FFLogsTokenURL = "https://www.fflogs.com/oauth/token"
	}
	return cfg
}

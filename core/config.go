package core

import (
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
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (default), TEST, QA, PROD
		Build            string
		AppName          string
		SecretKey        string
		WorkDir          string
		UploadDir        string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   serverConfig
		Database databaseConfig
		Broker   brokerConfig
	}

	serverConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	databaseConfig struct {
		URL     string
		Name    string
		Timeout time.Duration
	}

	brokerConfig struct {
		Host           string
		Port           int
		Username       string
		Password       string
		ClientID       string
		ConnectTimeout time.Duration
		PublishTimeout time.Duration
	}
)

// NewConfig loads the app configuration from the environment,
// with an optional `config/.env.<env>` dotenv file as the base layer.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "SmartClass Attendance")
	conf.SetDefault("secretKey", "y0u-w1ll-n3v3r-gu3ss-th1s-1n-pr0d")
	conf.SetDefault("uploadDir", "./uploads")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("serverDebugHost", "localhost:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 30*time.Minute)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("databaseUrl", "mongodb://localhost:27017")
	conf.SetDefault("databaseName", "attendance_system")
	conf.SetDefault("databaseTimeout", 5*time.Second)

	conf.SetDefault("brokerHost", "localhost")
	conf.SetDefault("brokerPort", 1883)
	conf.SetDefault("brokerUsername", "")
	conf.SetDefault("brokerPassword", "")
	conf.SetDefault("brokerClientId", "attendance-backend")
	conf.SetDefault("brokerConnectTimeout", 10*time.Second)
	conf.SetDefault("brokerPublishTimeout", 5*time.Second)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		WorkDir:          wd,
		UploadDir:        conf.GetString("uploadDir"),
		DefaultFromEmail: mail.Address{Address: conf.GetString("defaultFromEmail")},
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: serverConfig{
			Host:                      conf.GetString("serverHost"),
			Addr:                      conf.GetString("serverAddr"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: databaseConfig{
			URL:     conf.GetString("databaseUrl"),
			Name:    conf.GetString("databaseName"),
			Timeout: conf.GetDuration("databaseTimeout"),
		},
		Broker: brokerConfig{
			Host:           conf.GetString("brokerHost"),
			Port:           conf.GetInt("brokerPort"),
			Username:       conf.GetString("brokerUsername"),
			Password:       conf.GetString("brokerPassword"),
			ClientID:       conf.GetString("brokerClientId"),
			ConnectTimeout: conf.GetDuration("brokerConnectTimeout"),
			PublishTimeout: conf.GetDuration("brokerPublishTimeout"),
		},
	}
}

package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"crosspost/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	Scheduler   Scheduler   `json:"scheduler"`
	Worker      Worker      `json:"worker"`
	OAuth       OAuth       `json:"oauth"`
	Upload      Upload      `json:"upload"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mssql Db `json:"mssql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID    string `json:"projectID"`
	PublishTopic string `json:"publishTopic"`
	MediaTopic   string `json:"mediaTopic"`
	PublishSub   string `json:"publishSub"`
	MediaSub     string `json:"mediaSub"`
}

type ServiceBus struct {
	Namespace    string `json:"namespace"`
	OutcomeQueue string `json:"outcomeQueue"`
}

// Scheduler tunes the dispatch loop. Durations parse via time.ParseDuration.
type Scheduler struct {
	ImmediateThreshold string `json:"immediateThreshold"` // default 2h
	ScanInterval       string `json:"scanInterval"`       // default 10m
	ScanWindow         string `json:"scanWindow"`         // default 10m
}

func (s Scheduler) ImmediateThresholdDuration() time.Duration {
	return parseDurationOr(s.ImmediateThreshold, 2*time.Hour)
}

func (s Scheduler) ScanIntervalDuration() time.Duration {
	return parseDurationOr(s.ScanInterval, 10*time.Minute)
}

func (s Scheduler) ScanWindowDuration() time.Duration {
	return parseDurationOr(s.ScanWindow, 10*time.Minute)
}

// Worker tunes job execution and the retry policy.
type Worker struct {
	MaxAttempts      int    `json:"maxAttempts"`      // default 5
	BaseBackoff      string `json:"baseBackoff"`      // default 5s
	PublishTimeout   string `json:"publishTimeout"`   // default 60s
	RefreshThreshold string `json:"refreshThreshold"` // default 15m
}

func (w Worker) MaxAttemptsOrDefault() int {
	if w.MaxAttempts <= 0 {
		return 5
	}
	return w.MaxAttempts
}

func (w Worker) BaseBackoffDuration() time.Duration {
	return parseDurationOr(w.BaseBackoff, 5*time.Second)
}

func (w Worker) PublishTimeoutDuration() time.Duration {
	return parseDurationOr(w.PublishTimeout, 60*time.Second)
}

func (w Worker) RefreshThresholdDuration() time.Duration {
	return parseDurationOr(w.RefreshThreshold, 15*time.Minute)
}

// OAuth holds third-party platform OAuth client credentials.
type OAuth struct {
	YouTube   OAuthClient `json:"youtube"`
	Facebook  OAuthClient `json:"facebook"`
	Instagram OAuthClient `json:"instagram"`
	Tiktok    OAuthClient `json:"tiktok"`
	Twitter   OAuthClient `json:"twitter"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
}

type Upload struct {
	Endpoint string `json:"endpoint"`
	Bucket   string `json:"bucket"`
	BasePath string `json:"basePath"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	if C.App.TLSEnabled {
		for _, oc := range []*OAuthClient{&C.OAuth.YouTube, &C.OAuth.Facebook, &C.OAuth.Instagram, &C.OAuth.Tiktok, &C.OAuth.Twitter} {
			if oc.RedirectURI != "" && !hasHTTPS(oc.RedirectURI) {
				oc.RedirectURI = toHTTPSCallback(oc.RedirectURI)
			}
		}
	}
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	// MSSQL via environment variables (Azure SQL in production)
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}

	if C.Database.Mongo.Host == "" {
		C.Database.Mongo.Host = os.Getenv("MONGO_HOST")
	}
	if C.Database.Mongo.Port == "" {
		C.Database.Mongo.Port = os.Getenv("MONGO_PORT")
	}
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return len(u) >= 8 && u[:8] == "https://" }
func toHTTPSCallback(u string) string {
	if len(u) >= 7 && u[:7] == "http://" {
		return "https://" + u[7:]
	}
	return u
}

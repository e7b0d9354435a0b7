package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string

	CertificatePrefix  string
	MinDonationAmount  float64
	CounterLockTimeout time.Duration
	DonorResolveLock   bool

	RendererURL       string
	RendererAPIKey    string
	RenderTimeout     time.Duration
	RenderConcurrency int64

	ArtifactDir    string // local directory for rendered certificates when no bucket is set
	ArtifactBucket string // S3 bucket; takes precedence over ArtifactDir
	AWSRegion      string

	Org OrgDefaults
}

// OrgDefaults are served until an OrgSettings row is saved. Once the row
// exists the database copy wins and these values are ignored.
type OrgDefaults struct {
	Name           string
	RegistrationNo string
	PAN            string
	Address        string
	SignatoryName  string
	SignatoryTitle string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CERT_PREFIX", "HST-80G")
	viper.SetDefault("MIN_DONATION_AMOUNT", 100)
	viper.SetDefault("COUNTER_LOCK_TIMEOUT", "5s")
	viper.SetDefault("RENDER_TIMEOUT", "20s")
	viper.SetDefault("RENDER_CONCURRENCY", 4)
	viper.SetDefault("ARTIFACT_DIR", "storage/certificates")
	viper.SetDefault("AWS_REGION", "ap-south-1")

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	concurrency := viper.GetInt64("RENDER_CONCURRENCY")
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),

		CertificatePrefix:  strings.ToUpper(strings.TrimSpace(viper.GetString("CERT_PREFIX"))),
		MinDonationAmount:  viper.GetFloat64("MIN_DONATION_AMOUNT"),
		CounterLockTimeout: viper.GetDuration("COUNTER_LOCK_TIMEOUT"),
		DonorResolveLock:   viper.GetBool("DONOR_RESOLVE_LOCK"),

		RendererURL:       strings.TrimRight(viper.GetString("RENDERER_URL"), "/"),
		RendererAPIKey:    viper.GetString("RENDERER_API_KEY"),
		RenderTimeout:     viper.GetDuration("RENDER_TIMEOUT"),
		RenderConcurrency: concurrency,

		ArtifactDir:    viper.GetString("ARTIFACT_DIR"),
		ArtifactBucket: viper.GetString("ARTIFACT_BUCKET"),
		AWSRegion:      viper.GetString("AWS_REGION"),

		Org: OrgDefaults{
			Name:           orgName(viper.GetString("ORG_NAME")),
			RegistrationNo: viper.GetString("ORG_REGISTRATION_NO"),
			PAN:            strings.ToUpper(viper.GetString("ORG_PAN")),
			Address:        viper.GetString("ORG_ADDRESS"),
			SignatoryName:  viper.GetString("ORG_SIGNATORY_NAME"),
			SignatoryTitle: viper.GetString("ORG_SIGNATORY_TITLE"),
		},
	}, nil
}

func orgName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Helping Hands Seva Trust"
	}
	return s
}

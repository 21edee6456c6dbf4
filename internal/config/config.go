package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	EnvFileKey          = "ENV_FILE"
	PortKey             = "PORT"
	LookupBaseURLKey    = "LOOKUP_BASE_URL"
	PlatformDomainsKey  = "PLATFORM_DOMAINS"
	ReservedKey         = "RESERVED_SUBDOMAINS"
	OverrideParamKey    = "OVERRIDE_PARAM"
	PreviewPrefixKey    = "PREVIEW_PREFIX"
	FetchTimeoutKey     = "FETCH_TIMEOUT"
	FallbackToCacheKey  = "FALLBACK_TO_CACHE"
	BreakerFailuresKey  = "BREAKER_FAILURES"
	BreakerCooldownKey  = "BREAKER_COOLDOWN"
	DeployTopicARNKey   = "DEPLOY_TOPIC_ARN"
	SNSEndpointKey      = "SNS_ENDPOINT"
	ShellTemplateKey    = "SHELL_TEMPLATE"
	AppScriptKey        = "APP_SCRIPT"
	LogLevelKey         = "LOG_LEVEL"
	LogFormatKey        = "LOG_FORMAT"
	DefaultPort         = 8080
	DefaultLookupBase   = "http://localhost:3000"
	DefaultAppScript    = "/assets/index.js"
	DefaultBreakerLimit = 5

	DefaultBreakerCooldown = 30 * time.Second
)

// Settings holds the service configuration read from the environment.
type Settings struct {
	Port            int
	LookupBaseURL   string
	PlatformDomains []string
	Reserved        []string
	OverrideParam   string
	PreviewPrefix   string
	// FetchTimeout bounds one lookup request. Zero disables it.
	FetchTimeout    time.Duration
	FallbackToCache bool
	BreakerFailures int
	BreakerCooldown time.Duration
	DeployTopicARN  string
	SNSEndpoint     string
	ShellTemplate   string
	AppScript       string
}

// LoadEnvFile loads ENV_FILE (default .env) into the environment. A missing file is not an error.
func LoadEnvFile() {
	envFile := Getenv(EnvFileKey, ".env")
	if err := godotenv.Load(envFile); err != nil {
		log.WithField("file", envFile).Info("The env file not found.")
	}
}

// FromEnv reads the settings. Unset list values keep the resolver defaults (nil); an explicitly empty
// PREVIEW_PREFIX or OVERRIDE_PARAM disables that rule.
func FromEnv() (Settings, error) {
	s := Settings{
		LookupBaseURL:   Getenv(LookupBaseURLKey, DefaultLookupBase),
		PlatformDomains: splitList(os.Getenv(PlatformDomainsKey)),
		Reserved:        splitList(os.Getenv(ReservedKey)),
		OverrideParam:   lookupOr(OverrideParamKey, "broker"),
		PreviewPrefix:   lookupOr(PreviewPrefixKey, "/preview"),
		FallbackToCache: ParseBoolean(Getenv(FallbackToCacheKey, "false")),
		DeployTopicARN:  os.Getenv(DeployTopicARNKey),
		SNSEndpoint:     os.Getenv(SNSEndpointKey),
		ShellTemplate:   os.Getenv(ShellTemplateKey),
		AppScript:       Getenv(AppScriptKey, DefaultAppScript),
	}
	var err error
	if s.Port, err = strconv.Atoi(Getenv(PortKey, strconv.Itoa(DefaultPort))); err != nil {
		return s, fmt.Errorf("invalid %s: %w", PortKey, err)
	}
	if s.BreakerFailures, err = strconv.Atoi(Getenv(BreakerFailuresKey, strconv.Itoa(DefaultBreakerLimit))); err != nil {
		return s, fmt.Errorf("invalid %s: %w", BreakerFailuresKey, err)
	}
	if s.FetchTimeout, err = parseDuration(FetchTimeoutKey); err != nil {
		return s, err
	}
	if s.BreakerCooldown, err = parseDuration(BreakerCooldownKey); err != nil {
		return s, err
	}
	if s.BreakerCooldown == 0 {
		s.BreakerCooldown = DefaultBreakerCooldown
	}
	return s, nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logger.
func ConfigureLogging() {
	if lvl, err := log.ParseLevel(Getenv(LogLevelKey, "info")); err == nil {
		log.SetLevel(lvl)
	} else {
		log.WithError(err).Warn("Invalid log level, using info")
	}
	if strings.EqualFold(os.Getenv(LogFormatKey), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// Getenv retrieves the value of the environment variable named by the key.
func Getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func ParseBoolean(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func lookupOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

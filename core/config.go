package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string // DEV (default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		AppName  string
		WorkDir  string

		SecretKey        []byte
		DefaultFromEmail mail.Address
		BusinessTimezone *time.Location

		SendgridAPIKey string
		RollbarToken   string

		Server     ServerConfig
		Database   DatabaseConfig
		Mailbox    MailboxConfig
		Automation AutomationConfig
	}

	ServerConfig struct {
		Host               string
		Port               string
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	MailboxConfig struct {
		Host          string
		Port          string
		User          string
		Password      string
		CheckInterval time.Duration
		ReconnectWait time.Duration
		Keywords      []string
	}

	AutomationConfig struct {
		TickInterval     time.Duration
		RefreshInterval  time.Duration
		ToleranceMinutes int
		DispatchTimeout  time.Duration
	}
)

func (c ServerConfig) Address() string   { return net.JoinHostPort(c.Host, c.Port) }
func (c DatabaseConfig) Address() string { return net.JoinHostPort(c.Host, c.Port) }
func (c MailboxConfig) Address() string  { return net.JoinHostPort(c.Host, c.Port) }

// NewConfig loads the app configuration from the environment,
// optionally merged with a config/.env.<env> file.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Arnoma")
	v.SetDefault("secretKey", "w3lc0me-t0-arn0ma-&-ch4nge-m3-1n-pr0d")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("businessTimezone", "America/Los_Angeles")
	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "arnoma")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("mailboxHost", "imap.gmail.com")
	v.SetDefault("mailboxPort", "993")
	v.SetDefault("mailboxCheckInterval", 10*time.Second)
	v.SetDefault("mailboxReconnectWait", 5*time.Second)
	v.SetDefault("mailboxKeywords", "payment,zelle,paid")
	v.SetDefault("automationTickInterval", time.Minute)
	v.SetDefault("automationRefreshInterval", 30*time.Second)
	v.SetDefault("automationToleranceMinutes", 2)
	v.SetDefault("automationDispatchTimeout", 10*time.Second)

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("businessTimezone"))
	if err != nil {
		return nil, errors.Wrap(err, "loading business timezone")
	}

	conf := &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          v.GetString("appName"),
		WorkDir:          wd,
		SecretKey:        []byte(v.GetString("secretKey")),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		BusinessTimezone: loc,
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Port:               v.GetString("serverPort"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTls"),
		},
		Mailbox: MailboxConfig{
			Host:          v.GetString("mailboxHost"),
			Port:          v.GetString("mailboxPort"),
			User:          v.GetString("mailboxUser"),
			Password:      v.GetString("mailboxPassword"),
			CheckInterval: v.GetDuration("mailboxCheckInterval"),
			ReconnectWait: v.GetDuration("mailboxReconnectWait"),
			Keywords:      splitKeywords(v.GetString("mailboxKeywords")),
		},
		Automation: AutomationConfig{
			TickInterval:     v.GetDuration("automationTickInterval"),
			RefreshInterval:  v.GetDuration("automationRefreshInterval"),
			ToleranceMinutes: v.GetInt("automationToleranceMinutes"),
			DispatchTimeout:  v.GetDuration("automationDispatchTimeout"),
		},
	}
	return conf, nil
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	kws := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = CleanString(p, true /* lower */); p != "" {
			kws = append(kws, p)
		}
	}
	return kws
}

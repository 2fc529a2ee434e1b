package core

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		Address            string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	DatabaseConfig struct {
		Engine          string
		Host            string
		Port            int
		Name            string
		User            string
		Password        string
		AdminUser       string
		AdminPassword   string
		DisableTLS      bool
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}

	RedisConfig struct {
		Enabled bool
		URL     string
	}

	// RateLimitPolicyConfig mirrors guard.Policy; durations are set per call site through config.
	RateLimitPolicyConfig struct {
		Max    int
		Window time.Duration
		Block  time.Duration
	}

	GuardConfig struct {
		AnswerPolicy        RateLimitPolicyConfig
		APIPolicy           RateLimitPolicyConfig
		StrictPolicy        RateLimitPolicyConfig
		StrictFlagDuration  time.Duration
		MinAnswerTime       time.Duration
		MaxAnswerAge        time.Duration
		SuspicionLogScore   int
		SuspicionBlockScore int
		VerifiedMinAge      time.Duration
		VerifiedMinSolved   int
		TrustedMinAge       time.Duration
		TrustedMinSolved    int
	}

	DuelConfig struct {
		RequestTTL       time.Duration
		WinBonus         int
		MaxQuestionCount int
	}

	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		WorkDir      string
		Server       ServerConfig
		Database     DatabaseConfig
		Redis        RedisConfig
		Duel         DuelConfig
		Guard        GuardConfig
	}
)

// Address returns the "host:port" of the database server.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Mentora")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "k!7r2-mz0^vq=duel$n3xq8&0p(w)9c_l4h#t@s1y6e%b+5ao")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "mentora")
	v.SetDefault("database.user", "mentora")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 5*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("duel.requestTTL", 30*time.Second)
	v.SetDefault("duel.winBonus", 50)
	v.SetDefault("duel.maxQuestionCount", 20)

	v.SetDefault("guard.answerPolicy.max", 3)
	v.SetDefault("guard.answerPolicy.window", 5*time.Second)
	v.SetDefault("guard.answerPolicy.block", 30*time.Second)
	v.SetDefault("guard.apiPolicy.max", 60)
	v.SetDefault("guard.apiPolicy.window", time.Minute)
	v.SetDefault("guard.apiPolicy.block", time.Minute)
	v.SetDefault("guard.strictPolicy.max", 2)
	v.SetDefault("guard.strictPolicy.window", 10*time.Second)
	v.SetDefault("guard.strictPolicy.block", 5*time.Minute)
	v.SetDefault("guard.strictFlagDuration", time.Hour)
	v.SetDefault("guard.minAnswerTime", 2*time.Second)
	v.SetDefault("guard.maxAnswerAge", 10*time.Minute)
	v.SetDefault("guard.suspicionLogScore", 40)
	v.SetDefault("guard.suspicionBlockScore", 70)
	v.SetDefault("guard.verifiedMinAge", 7*24*time.Hour)
	v.SetDefault("guard.verifiedMinSolved", 10)
	v.SetDefault("guard.trustedMinAge", 30*24*time.Hour)
	v.SetDefault("guard.trustedMinSolved", 100)
}

// NewConfig loads the configuration for the current ENV (DEV by default; TEST, QA, PROD).
// Values come from defaults, then `config/.env.<env>` if present, then the environment
// (e.g. DEV_DATABASE_HOST for database.host).
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Env = env
	conf.WorkDir = wd
	return conf, nil
}

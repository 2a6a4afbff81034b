package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"chinchon-service/internal/chinchon"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Game     GameConfig     `mapstructure:"game"`
	Match    MatchConfig    `mapstructure:"match"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql, sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type GameConfig struct {
	TargetScore       int    `mapstructure:"targetScore"`
	CutThreshold      int    `mapstructure:"cutThreshold"`
	ChinchonBonus     int    `mapstructure:"chinchonBonus"`
	SplitSets         bool   `mapstructure:"splitSets"`
	Solver            string `mapstructure:"solver"` // bruteforce, backtrack
	DefaultDifficulty string `mapstructure:"defaultDifficulty"`
	TurnSeconds       int    `mapstructure:"turnSeconds"`
	SnapshotTTL       int    `mapstructure:"snapshotTTL"` // minutes
	InviteTTL         int    `mapstructure:"inviteTTL"`   // minutes
}

type MatchConfig struct {
	IntervalMillis int  `mapstructure:"intervalMillis"`
	QueueTimeout   int  `mapstructure:"queueTimeout"` // seconds
	SplitSubnets   bool `mapstructure:"splitSubnets"`
}

// AdminConfig seeds the first admin account on an empty database.
type AdminConfig struct {
	DefaultUsername string `mapstructure:"defaultUsername"`
	DefaultPassword string `mapstructure:"defaultPassword"`
}

// Rules converts the game section into engine rules.
func (g GameConfig) Rules() chinchon.Rules {
	return chinchon.Rules{
		CutThreshold:  g.CutThreshold,
		ChinchonBonus: g.ChinchonBonus,
		SplitSets:     g.SplitSets,
	}
}

func (g GameConfig) TurnTimeout() time.Duration {
	return time.Duration(g.TurnSeconds) * time.Second
}

var GlobalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("jwt.expire", 72)
	v.SetDefault("game.targetScore", chinchon.TargetLong)
	v.SetDefault("game.cutThreshold", chinchon.DefaultCut)
	v.SetDefault("game.chinchonBonus", chinchon.DefaultBonus)
	v.SetDefault("game.solver", "bruteforce")
	v.SetDefault("game.defaultDifficulty", "medium")
	v.SetDefault("game.turnSeconds", 30)
	v.SetDefault("game.snapshotTTL", 24*60)
	v.SetDefault("game.inviteTTL", 30)
	v.SetDefault("match.intervalMillis", 500)
	v.SetDefault("match.queueTimeout", 180)
}

// Load reads a YAML file; CHINCHON_* environment variables override it,
// e.g. CHINCHON_GAME_TARGETSCORE=50.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CHINCHON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := chinchon.NewGameScore(c.Game.TargetScore); err != nil {
		return fmt.Errorf("game.targetScore: %w", err)
	}
	if c.Game.CutThreshold < 0 {
		return fmt.Errorf("game.cutThreshold must not be negative")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver %q not supported", c.Database.Driver)
	}
	return nil
}

func LoadConfig(path string) {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	GlobalConfig = cfg
}

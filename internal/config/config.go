package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	PublicURL  string `yaml:"public_url" env-default:"http://localhost:5173"`
	Tokens     `yaml:"tokens"`
	Mail       `yaml:"mail"`
	Branding   `yaml:"branding"`
	RabbitMQ   `yaml:"rabbitmq"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env-default:"localhost:6379"`
	Password string `yaml:"password" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type Tokens struct {
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env-required:"true"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-required:"true"`
	JWTSecret       string        `yaml:"jwt_secret" env-required:"true"`

	// TTL for password-reset and magic-link tokens. The emails promise
	// "expires in 1 hour", keep the two in sync.
	AuthTokenTTL time.Duration `yaml:"auth_token_ttl" env-default:"1h"`
}

type Mail struct {
	FromAddress string `yaml:"from_address" env-required:"true"`

	Mailgun struct {
		APIKey  string        `yaml:"api_key" env:"MAILGUN_API_KEY"`
		Domain  string        `yaml:"domain" env:"MAILGUN_DOMAIN"`
		BaseURL string        `yaml:"base_url" env-default:"https://api.mailgun.net/v3"`
		Timeout time.Duration `yaml:"timeout" env-default:"15s"`
	} `yaml:"mailgun"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port" env-default:"587"`
		Username string `yaml:"username"`
		Password string `yaml:"password" env:"SMTP_PASSWORD"`
	} `yaml:"smtp"`
}

type Branding struct {
	SchoolName   string `yaml:"school_name" env-default:"RealEdu"`
	Tagline      string `yaml:"tagline" env-default:"Iowa Real Estate CE Provider"`
	SupportEmail string `yaml:"support_email" env-default:"info@realedu.co"`
	Address      string `yaml:"postal_address" env-default:"4817 University Avenue, Suite D, Cedar Falls, Iowa 50613"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env-required:"true"`
	QueueName string `yaml:"queue_name" env-default:"email_jobs"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist" + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}

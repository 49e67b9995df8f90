package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
)

type Config struct {
	conf.Version
	Web       Web
	Cors      Cors
	DB        DB
	Auth      Auth
	RateLimit RateLimit
	Sequence  Sequence
	Redis     Redis
	Kafka     Kafka
	Payhere   Payhere
	Stripe    Stripe
	Paypal    Paypal
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:tuition"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:0"`
	DisableTLS   bool   `conf:"default:true"`
}

type Auth struct {
	SessionLifetime time.Duration `conf:"default:24h"`
	AdminEmail      string
	AdminPassword   string `conf:"mask"`
}

type RateLimit struct {
	Burst    int           `conf:"default:10"`
	Interval time.Duration `conf:"default:500ms"`
	Expiry   time.Duration `conf:"default:10m"`
	Sweep    time.Duration `conf:"default:1m"`
}

// Sequence configures the student identifier issuer. Backend is either
// "postgres" or "redis".
type Sequence struct {
	Backend string `conf:"default:postgres"`
	Prefix  string `conf:"default:PPP"`
	Width   int    `conf:"default:4"`
}

type Redis struct {
	URL       string `conf:"default:redis://localhost:6379/0"`
	KeyPrefix string `conf:"default:tuition:seq"`
}

type Kafka struct {
	Brokers      []string      `conf:"default:localhost:9092"`
	PollInterval time.Duration `conf:"default:5s"`
	BatchSize    int           `conf:"default:50"`
	Enabled      bool          `conf:"default:false"`
}

type Payhere struct {
	MerchantID     string
	MerchantSecret string `conf:"mask"`
	CheckoutURL    string `conf:"default:https://sandbox.payhere.lk/pay/checkout"`
	Currency       string `conf:"default:LKR"`
	ReturnURL      string
	CancelURL      string
	NotifyURL      string
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	Currency      string `conf:"default:lkr"`
	SuccessURL    string
	CancelURL     string
}

type Paypal struct {
	ClientID  string
	Secret    string `conf:"mask"`
	URL       string `conf:"default:https://api-m.sandbox.paypal.com"`
	Currency  string `conf:"default:USD"`
	ReturnURL string
	CancelURL string
}

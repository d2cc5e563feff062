package config

import "time"

type Config struct {
	Web     Web
	DB      DB
	Cors    Cors
	Session Session
	Stripe  Stripe
	Paypal  Paypal
	Cache   Cache
	Rate    Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:learning"`
	DisableTLS bool   `conf:"default:true"`
}

type Cors struct {
	Origin string `conf:"default:"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:3000/dashboard"`
	CancelURL     string `conf:"default:http://localhost:3000/courses"`
}

type Paypal struct {
	ClientID string `conf:"mask"`
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

// Cache selects the backing store for transient keyed state, such as the
// seen-event cache in front of the payment webhook.
type Cache struct {
	Backend  string        `conf:"default:memory"`
	RedisURL string        `conf:"default:redis://localhost:6379/0"`
	EventTTL time.Duration `conf:"default:5m"`
}

// Rate bounds the cadence of progress position pings per user.
type Rate struct {
	Burst    int           `conf:"default:10"`
	Interval time.Duration `conf:"default:2s"`
	Expiry   int           `conf:"default:30"`
}

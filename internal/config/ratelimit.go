package config

import "time"

type RateLimitConfig struct {
	Enabled bool          `envconfig:"ENABLED" default:"false"`
	Chat    int           `envconfig:"CHAT" default:"20" validate:"min=1"`
	Widget  int           `envconfig:"WIDGET" default:"30" validate:"min=1"`
	Window  time.Duration `envconfig:"WINDOW" default:"1m" validate:"gt=0"`
}

package discord

// Config holds configuration for the platform client.
type Config struct {
	// Token is the bot token, without the "Bot " prefix.
	Token string `mapstructure:"token" default:""`
	// RequestsPerSecond is the sustained request rate across all routes.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"5"`
	// Burst is the number of requests allowed above the sustained rate.
	Burst int `mapstructure:"burst" default:"5"`
	// TimeoutSeconds bounds every HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Venue credentials
	redact(&out.Venues.Binance.ApiKey)
	redact(&out.Venues.Binance.ApiSecret)
	redact(&out.Venues.KuCoin.ApiKey)
	redact(&out.Venues.KuCoin.ApiSecret)
	redact(&out.Venues.KuCoin.ApiPassphrase)

	// Ranking service
	redact(&out.Cmarket.ApiKey)

	// Database
	redact(&out.Database.DSN)
	redact(&out.Database.Password)

	// Redis
	redact(&out.Redis.Password)

	// S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Venues.Generic != nil {
		out.Venues.Generic = make([]GenericVenueConfig, len(cfg.Venues.Generic))
		copy(out.Venues.Generic, cfg.Venues.Generic)
	}
	if cfg.Universe.Pairs != nil {
		out.Universe.Pairs = make([]string, len(cfg.Universe.Pairs))
		copy(out.Universe.Pairs, cfg.Universe.Pairs)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

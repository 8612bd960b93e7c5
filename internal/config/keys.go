package config

type kind int

const (
	kString kind = iota
	kInt
)

type keySpec struct {
	key     string // backend key, dotted
	env     string // environment variable override
	account string // keychain account, secrets only
	typ     kind
	secret  bool
	apply   func(*Config, any)
	extract func(Config) any
}

var specs = []keySpec{
	{
		key: "anthropic.api_key", env: "RADAR_ANTHROPIC_API_KEY", account: "anthropic_api_key",
		typ: kString, secret: true,
		apply:   func(c *Config, v any) { c.Anthropic.APIKey = v.(string) },
		extract: func(c Config) any { return c.Anthropic.APIKey },
	},
	{
		key: "anthropic.model", env: "RADAR_ANTHROPIC_MODEL", typ: kString,
		apply:   func(c *Config, v any) { c.Anthropic.Model = v.(string) },
		extract: func(c Config) any { return c.Anthropic.Model },
	},
	{
		key: "anthropic.max_turns", env: "RADAR_MAX_TURNS", typ: kInt,
		apply:   func(c *Config, v any) { c.Anthropic.MaxTurns = v.(int) },
		extract: func(c Config) any { return c.Anthropic.MaxTurns },
	},
	{
		key: "search.brave_api_key", env: "RADAR_BRAVE_API_KEY", account: "brave_api_key",
		typ: kString, secret: true,
		apply:   func(c *Config, v any) { c.Search.BraveAPIKey = v.(string) },
		extract: func(c Config) any { return c.Search.BraveAPIKey },
	},
	{
		key: "convex.deployment_url", env: "RADAR_CONVEX_URL", typ: kString,
		apply:   func(c *Config, v any) { c.Convex.DeploymentURL = v.(string) },
		extract: func(c Config) any { return c.Convex.DeploymentURL },
	},
	{
		key: "storage.data_dir", env: "RADAR_DATA_DIR", typ: kString,
		apply:   func(c *Config, v any) { c.Storage.DataDir = v.(string) },
		extract: func(c Config) any { return c.Storage.DataDir },
	},
	{
		key: "storage.project_root", env: "RADAR_PROJECT_ROOT", typ: kString,
		apply:   func(c *Config, v any) { c.Storage.ProjectRoot = v.(string) },
		extract: func(c Config) any { return c.Storage.ProjectRoot },
	},
	{
		key: "server.port", env: "RADAR_PORT", typ: kInt,
		apply:   func(c *Config, v any) { c.Server.Port = v.(int) },
		extract: func(c Config) any { return c.Server.Port },
	},
	{
		key: "log.level", env: "RADAR_LOG_LEVEL", typ: kString,
		apply:   func(c *Config, v any) { c.Log.Level = v.(string) },
		extract: func(c Config) any { return c.Log.Level },
	},
	{
		key: "safety.deny_extra", env: "RADAR_DENY_EXTRA", typ: kString,
		apply:   func(c *Config, v any) { c.Safety.DenyExtra = v.(string) },
		extract: func(c Config) any { return c.Safety.DenyExtra },
	},
}

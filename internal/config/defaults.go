package config

var defaults = map[string]any{
	"secret":    "",
	"token_ttl": 600,
	"log_level": "info",

	"nonce_store": "memory",

	"allowed_networks": "",

	"user_auth_ttl": 8, // 8 days
	"support_url":   DEFAULT_SUPPORT_URL,
	"base_url":      "/",

	"email.host":     "host.docker.internal",
	"email.port":     25,
	"email.username": "",
	"email.password": "",
	"email.from":     "noreply@lynck.space",

	"google.client_id":     "",
	"google.client_secret": "",
	"google.redirect_url":  "",

	"plans.policy_file": "./instance/plans.yaml",

	"storage.type":        "sqlite",
	"storage.sqlite.path": "./data/storage.db",
}

func Defaults() map[string]any {
	values := make(map[string]any)
	for k, v := range defaults {
		values[k] = v
	}
	return values
}

package config

import "testing"

func TestLoadConfigPublishesGlobal(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if Cfg == nil {
		t.Fatal("Cfg not assigned after LoadConfig")
	}
	if Cfg != cfg {
		t.Error("Cfg does not point at the loaded configuration")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.TokenTTL != 600 {
		t.Errorf("token_ttl = %d, want 600", cfg.TokenTTL)
	}
	if cfg.NonceStore != "memory" {
		t.Errorf("nonce_store = %q, want memory", cfg.NonceStore)
	}
	if cfg.Email.Port != 25 {
		t.Errorf("email.port = %d, want 25", cfg.Email.Port)
	}
}

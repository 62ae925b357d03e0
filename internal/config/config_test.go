package config

import (
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "leadline", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Business: BusinessConfig{
			Name:           "Mike's Plumbing",
			OwnerName:      "Mike",
			AssistantName:  "Ava",
			OperatorNumber: "+15551234567",
		},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Notify.MaxAttempts != 3 || c.Notify.BackoffBase != time.Second {
		t.Fatalf("expected notify defaults, got %+v", c.Notify)
	}
	if c.Session.IdleTimeout != 10*time.Minute || c.Session.TerminalGrace != 2*time.Minute {
		t.Fatalf("expected session defaults, got %+v", c.Session)
	}
}

func TestValidate_ProductionRequiresDeliveryChannels(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.DB.SSLMode = "require"

	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production without twilio/smtp")
	}

	c.Twilio = TwilioConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+15550001111"}
	c.SMTP = SMTPConfig{Host: "smtp.example.com", Port: 587, From: "alerts@example.com"}
	c.Business.OperatorEmail = "operator@example.com"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Twilio = TwilioConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+15550001111"}
	c.SMTP = SMTPConfig{Host: "smtp.example.com", Port: 587, From: "alerts@example.com"}
	c.Business.OperatorEmail = "operator@example.com"

	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_BusinessIdentityRequired(t *testing.T) {
	c := validBase()
	c.Business.AssistantName = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing assistant name")
	}
}

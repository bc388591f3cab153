package cfg

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPPort != "8080" || c.IngestPort != "9999" {
		t.Errorf("ports = %s/%s", c.HTTPPort, c.IngestPort)
	}
	if c.MaxPasteSize != 4096 {
		t.Errorf("max paste size = %d", c.MaxPasteSize)
	}
	if c.AdmitPermits != 5 || c.AdmitWindow != 30*time.Second {
		t.Errorf("admission budget = %d/%v", c.AdmitPermits, c.AdmitWindow)
	}
	if err := Validate(c); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "3000")
	t.Setenv("MAX_PASTE_SIZE", "1024")
	t.Setenv("ADMIT_WINDOW", "10s")
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPPort != "3000" || c.MaxPasteSize != 1024 || c.AdmitWindow != 10*time.Second {
		t.Errorf("overrides not applied: %s %d %v", c.HTTPPort, c.MaxPasteSize, c.AdmitWindow)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	t.Setenv("MAX_PASTE_SIZE", "lots")
	if _, err := Load(); err == nil {
		t.Error("malformed integer accepted")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Cfg {
		c, err := Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return c
	}

	c := base()
	c.IngestPort = c.HTTPPort
	if err := Validate(c); err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Errorf("shared port accepted: %v", err)
	}

	c = base()
	c.RedisURL = "localhost:6379"
	if err := Validate(c); err == nil {
		t.Error("bare redis address accepted")
	}
	c.RedisURL = "redis://localhost:6379"
	if err := Validate(c); err != nil {
		t.Errorf("redis url rejected: %v", err)
	}

	c = base()
	c.AdmitWindow = 100 * time.Millisecond
	if err := Validate(c); err == nil {
		t.Error("sub-second admission window accepted")
	}
}

func TestBaseURL(t *testing.T) {
	c := &Cfg{Host: "paste.example.com", HTTPPort: "8080"}
	if got := c.BaseURL(); got != "http://paste.example.com:8080" {
		t.Errorf("base url = %q", got)
	}
}

package main

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/luismedel/protohackers-challenge/internal/config"
	"github.com/luismedel/protohackers-challenge/internal/server"
)

func parse(t *testing.T, args ...string) *options {
	t.Helper()
	fs := flag.NewFlagSet("protohackers", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o, err := parseFlags(fs, args)
	if err != nil {
		t.Fatalf("parseFlags(%v) failed: %v", args, err)
	}
	return o
}

func TestParseFlagsDefaults(t *testing.T) {
	o := parse(t)
	if o.service != serviceMeans {
		t.Errorf("service = %q, want %q", o.service, serviceMeans)
	}
	if o.addr != "0.0.0.0" || o.port != 7777 {
		t.Errorf("addr = %s:%d, want 0.0.0.0:7777", o.addr, o.port)
	}
	if !o.trace {
		t.Error("trace = false, want true")
	}
	if len(o.set) != 0 {
		t.Errorf("set = %v, want empty", o.set)
	}
}

func TestParseFlagsShorthand(t *testing.T) {
	o := parse(t, "-a", "127.0.0.1", "-p", "9000", "-trace=false", "-service", "prime")
	if o.addr != "127.0.0.1" || o.port != 9000 {
		t.Errorf("addr = %s:%d, want 127.0.0.1:9000", o.addr, o.port)
	}
	if o.trace {
		t.Error("trace = true, want false")
	}
	if !o.set["addr"] || !o.set["port"] || !o.set["service"] {
		t.Errorf("set = %v, want addr, port and service", o.set)
	}
}

func TestParseFlagsUnknownService(t *testing.T) {
	fs := flag.NewFlagSet("protohackers", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := parseFlags(fs, []string{"-service", "chat"}); err == nil {
		t.Error("parseFlags with unknown service: expected error")
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := loadConfig(parse(t, "-service", "smoke", "-port", "7000"))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if !cfg.Services.SmokeTest.Enabled {
		t.Error("SmokeTest.Enabled = false, want true")
	}
	if cfg.Services.MeansToAnEnd.Enabled || cfg.Services.PrimeTime.Enabled {
		t.Error("only the selected service should be enabled")
	}
	if got := cfg.Services.SmokeTest.Address(); got != "0.0.0.0:7000" {
		t.Errorf("SmokeTest.Address() = %q, want %q", got, "0.0.0.0:7000")
	}
}

func TestLoadConfigFileOverrides(t *testing.T) {
	yaml := `
services:
  prime_time:
    enabled: true
    port: 8001
  means_to_an_end:
    enabled: true
    port: 8002
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(parse(t, "-config", path))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Services.MeansToAnEnd.Port != 8002 {
		t.Errorf("MeansToAnEnd.Port = %d, want %d from file", cfg.Services.MeansToAnEnd.Port, 8002)
	}

	cfg, err = loadConfig(parse(t, "-config", path, "-port", "9002"))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Services.MeansToAnEnd.Port != 9002 {
		t.Errorf("MeansToAnEnd.Port = %d, want %d from flag", cfg.Services.MeansToAnEnd.Port, 9002)
	}
	if cfg.Services.PrimeTime.Port != 8001 {
		t.Errorf("PrimeTime.Port = %d, want %d", cfg.Services.PrimeTime.Port, 8001)
	}
}

func TestBuildServers(t *testing.T) {
	cfg := config.Default()
	cfg.Services.SmokeTest.Enabled = true
	cfg.Services.PrimeTime.Enabled = true

	servers := buildServers(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if len(servers) != 3 {
		t.Fatalf("len(servers) = %d, want 3", len(servers))
	}

	want := []string{serviceSmoke, servicePrime, serviceMeans}
	for i, s := range servers {
		if s.Name() != want[i] {
			t.Errorf("servers[%d].Name() = %q, want %q", i, s.Name(), want[i])
		}
		if s.State() != server.StateIdle {
			t.Errorf("servers[%d].State() = %v, want %v", i, s.State(), server.StateIdle)
		}
	}
}

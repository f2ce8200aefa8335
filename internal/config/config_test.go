package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

const (
	oracle = "0x00000000000000000000000000000000000000a1"
	dex    = "0x00000000000000000000000000000000000000b1"
	base   = "0x00000000000000000000000000000000000000c1"
)

func TestLoadFromFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radhedge.yaml")
	body := "oracle: \"" + oracle + "\"\ndex: '" + dex + "'\nbase-currency: \"" + base + "\"\nlog-level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("journal", "", "")
	flags.Duration("retry-backoff", 0, "")
	if err := flags.Parse([]string{"--journal", "/tmp/pools.jsonl", "--retry-backoff", "2s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Oracle != oracle || cfg.Dex != dex || cfg.BaseCurrency != base {
		t.Fatalf("addresses mismatch: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level mismatch: %s", cfg.LogLevel)
	}
	if cfg.Journal != "/tmp/pools.jsonl" || cfg.RetryBackoff != 2*time.Second {
		t.Fatalf("flag values not applied: %+v", cfg)
	}
	if cfg.MaxRetries != 3 || cfg.Deployer != DefaultDeployer {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadRejectsUnquotedAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radhedge.yaml")
	body := "oracle: " + oracle + "\ndex: \"" + dex + "\"\nbase-currency: \"" + base + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path, nil)
	if err == nil {
		t.Fatalf("expected error for unquoted oracle address")
	}
	if !strings.Contains(err.Error(), "oracle") || !strings.Contains(err.Error(), "quote") {
		t.Fatalf("error should name the key and ask for quoting: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RADHEDGE_ORACLE", oracle)
	t.Setenv("RADHEDGE_BASE_CURRENCY", base)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err == nil {
		t.Fatalf("expected error for explicit missing config file, got %+v", cfg)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(cwd)

	cfg, err = Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Oracle != oracle || cfg.BaseCurrency != base {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestParseAddresses(t *testing.T) {
	cfg := Config{Oracle: oracle, Dex: dex, BaseCurrency: base, Deployer: DefaultDeployer}
	addrs, err := cfg.ParseAddresses()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addrs.Oracle != common.HexToAddress(oracle) || addrs.Dex != common.HexToAddress(dex) {
		t.Fatalf("address mismatch: %+v", addrs)
	}
	if addrs.Deployer != common.HexToAddress(DefaultDeployer) {
		t.Fatalf("deployer mismatch: %s", addrs.Deployer.Hex())
	}

	missing := cfg
	missing.Dex = ""
	if _, err := missing.ParseAddresses(); err == nil {
		t.Fatalf("expected error for missing dex")
	}

	bad := cfg
	bad.BaseCurrency = "0xnothex"
	if _, err := bad.ParseAddresses(); err == nil {
		t.Fatalf("expected error for invalid base currency")
	}
}

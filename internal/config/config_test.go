package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfigDir creates a temp project root with config/{env}.yaml and
// optionally config/secrets.yaml, then chdirs into it.
func writeConfigDir(t *testing.T, configYAML, secretsYAML string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "dev.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if secretsYAML != "" {
		if err := os.WriteFile(filepath.Join(dir, "config", "secrets.yaml"), []byte(secretsYAML), 0o600); err != nil {
			t.Fatalf("write secrets: %v", err)
		}
	}
	chdir(t, dir)
}

// chdir replicates t.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}

const minimalConfig = `
app:
  package_name: com.example.app
  property_id: "123456"
`

func TestLoad_Defaults(t *testing.T) {
	writeConfigDir(t, minimalConfig, "")
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("RELEASE_HEALTH_API_TOKEN", "test-token")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("MEMCACHED_ADDRS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.APIToken != "test-token" {
		t.Errorf("APIToken = %q, want test-token", cfg.APIToken)
	}
	if cfg.PackageName != "com.example.app" || cfg.PropertyID != "123456" {
		t.Errorf("app identity = %q/%q", cfg.PackageName, cfg.PropertyID)
	}
	if cfg.ReviewFetchSize != 100 || cfg.VitalsPageSize != 10 {
		t.Errorf("fetch sizes = %d/%d, want 100/10", cfg.ReviewFetchSize, cfg.VitalsPageSize)
	}
	if cfg.SnapshotTTL != 2*time.Minute {
		t.Errorf("SnapshotTTL = %v, want 2m", cfg.SnapshotTTL)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want in_memory", cfg.CacheBackend)
	}
	if cfg.RateLimitRPS != 50 || cfg.RateLimitBurst != 100 {
		t.Errorf("rate limit = %d/%d, want 50/100", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if !strings.Contains(cfg.ReviewsAPIURL, "androidpublisher") {
		t.Errorf("ReviewsAPIURL = %q, want androidpublisher default", cfg.ReviewsAPIURL)
	}
}

func TestLoad_TokenFromSecretsFile(t *testing.T) {
	writeConfigDir(t, minimalConfig, "api_token: from-secrets\n")
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("RELEASE_HEALTH_API_TOKEN", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("MEMCACHED_ADDRS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIToken != "from-secrets" {
		t.Errorf("APIToken = %q, want from-secrets", cfg.APIToken)
	}
}

func TestLoad_EnvTokenOverridesSecrets(t *testing.T) {
	writeConfigDir(t, minimalConfig, "api_token: from-secrets\n")
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("RELEASE_HEALTH_API_TOKEN", "from-env")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("MEMCACHED_ADDRS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIToken != "from-env" {
		t.Errorf("APIToken = %q, want from-env", cfg.APIToken)
	}
}

func TestLoad_MissingToken(t *testing.T) {
	writeConfigDir(t, minimalConfig, "")
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("RELEASE_HEALTH_API_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Error("Load succeeded without an API token")
	}
}

func TestLoad_MissingAppIdentity(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing package name", "app:\n  property_id: \"123\"\n"},
		{"missing property id", "app:\n  package_name: com.example.app\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			writeConfigDir(t, tc.yaml, "")
			t.Setenv("ENV_NAME", "dev")
			t.Setenv("RELEASE_HEALTH_API_TOKEN", "tok")

			if _, err := Load(); err == nil {
				t.Error("Load succeeded without required app identity")
			}
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("RELEASE_HEALTH_API_TOKEN", "tok")

	if _, err := Load(); err == nil {
		t.Error("Load succeeded without a config file")
	}
}

func TestLoad_ExplicitValues(t *testing.T) {
	writeConfigDir(t, `
server:
  port: "9090"
upstream:
  reviews_url: http://localhost:9001
  timeout: 3s
app:
  package_name: com.example.app
  property_id: "123456"
  review_fetch_size: 25
cache:
  backend: memcached
  snapshot_ttl: 30s
  memcached:
    addrs: cache1:11211,cache2:11211
reliability:
  rate_limit_rps: 10
  rate_limit_burst: 20
lifecycle:
  degraded_error_pct: 25
`, "")
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("RELEASE_HEALTH_API_TOKEN", "tok")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("MEMCACHED_ADDRS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.ReviewsAPIURL != "http://localhost:9001" {
		t.Errorf("ReviewsAPIURL = %q", cfg.ReviewsAPIURL)
	}
	if cfg.UpstreamTimeout != 3*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 3s", cfg.UpstreamTimeout)
	}
	if cfg.ReviewFetchSize != 25 {
		t.Errorf("ReviewFetchSize = %d, want 25", cfg.ReviewFetchSize)
	}
	if cfg.CacheBackend != "memcached" || cfg.MemcachedAddrs != "cache1:11211,cache2:11211" {
		t.Errorf("cache = %q/%q", cfg.CacheBackend, cfg.MemcachedAddrs)
	}
	if cfg.SnapshotTTL != 30*time.Second {
		t.Errorf("SnapshotTTL = %v, want 30s", cfg.SnapshotTTL)
	}
	if cfg.RateLimitRPS != 10 || cfg.RateLimitBurst != 20 {
		t.Errorf("rate limit = %d/%d, want 10/20", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.DegradedErrorPct != 25 {
		t.Errorf("DegradedErrorPct = %d, want 25", cfg.DegradedErrorPct)
	}
}

func TestLoad_CacheBackendEnvOverride(t *testing.T) {
	writeConfigDir(t, minimalConfig, "")
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("RELEASE_HEALTH_API_TOKEN", "tok")
	t.Setenv("CACHE_BACKEND", "memcached")
	t.Setenv("MEMCACHED_ADDRS", "override:11211")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheBackend != "memcached" {
		t.Errorf("CacheBackend = %q, want memcached", cfg.CacheBackend)
	}
	if cfg.MemcachedAddrs != "override:11211" {
		t.Errorf("MemcachedAddrs = %q, want override:11211", cfg.MemcachedAddrs)
	}
}

func TestLoad_UnknownCacheBackend(t *testing.T) {
	writeConfigDir(t, minimalConfig+"cache:\n  backend: redis\n", "")
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("RELEASE_HEALTH_API_TOKEN", "tok")
	t.Setenv("CACHE_BACKEND", "")

	if _, err := Load(); err == nil {
		t.Error("Load accepted an unknown cache backend")
	}
}

func TestLoad_RequestTimeoutAdjustedToFitUpstream(t *testing.T) {
	writeConfigDir(t, minimalConfig+`
upstream:
  timeout: 20s
request:
  timeout: 5s
`, "")
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("RELEASE_HEALTH_API_TOKEN", "tok")
	t.Setenv("CACHE_BACKEND", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RequestTimeout != 22*time.Second {
		t.Errorf("RequestTimeout = %v, want 22s (upstream + 2s)", cfg.RequestTimeout)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"valid", "90s", 90 * time.Second},
		{"empty falls back", "", time.Minute},
		{"garbage falls back", "soon", time.Minute},
		{"negative falls back", "-5s", time.Minute},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseDuration(tc.input, time.Minute); got != tc.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

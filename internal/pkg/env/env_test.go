package env

import "testing"

func TestGetEnvPrefersEnvFileOverDefault(t *testing.T) {
	Env = map[string]string{"APP_ENV": "dev"}
	t.Cleanup(func() { Env = nil })

	if got := GetEnv("APP_ENV", "prod"); got != "dev" {
		t.Fatalf("GetEnv = %q, want dev", got)
	}
	if !IsDev() {
		t.Fatal("IsDev must be true when APP_ENV=dev")
	}
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	Env = map[string]string{"RECONCILE_TIMEOUT_MINUTES": "soon"}
	t.Cleanup(func() { Env = nil })

	if got := GetEnvInt("RECONCILE_TIMEOUT_MINUTES", 30); got != 30 {
		t.Fatalf("GetEnvInt = %d, want 30", got)
	}
}

func TestAppBaseURLDefaultsToDevServer(t *testing.T) {
	Env = map[string]string{}
	t.Cleanup(func() { Env = nil })
	t.Setenv("APP_URL", "")
	t.Setenv("APP_PORT", "")

	if got := AppBaseURL(); got != "http://localhost:3000" {
		t.Fatalf("AppBaseURL = %q, want http://localhost:3000", got)
	}
}

func TestAppBaseURLTrimsTrailingSlash(t *testing.T) {
	Env = map[string]string{"APP_URL": "https://bon-log.jp/"}
	t.Cleanup(func() { Env = nil })

	if got := AppBaseURL(); got != "https://bon-log.jp" {
		t.Fatalf("AppBaseURL = %q, want https://bon-log.jp", got)
	}
}

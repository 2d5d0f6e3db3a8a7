package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knownEnvKeys are the variables these tests touch. Blanking them via
// t.Setenv both isolates each subtest from the ambient environment and
// restores the original values when the test ends; viper treats an empty
// variable as unset.
var knownEnvKeys = []string{
	"CRM_APP_NAME",
	"CRM_APP_ENV",
	"CRM_APP_PORT",
	"CRM_DATABASE_HOST",
	"CRM_DATABASE_PORT",
	"CRM_DATABASE_USER",
	"CRM_DATABASE_PASSWORD",
	"CRM_DATABASE_DBNAME",
	"CRM_DATABASE_SSLMODE",
	"CRM_DATABASE_MAX_OPEN_CONNS",
	"CRM_DATABASE_MAX_IDLE_CONNS",
	"CRM_IDEMPOTENCY_TTL",
	"CRM_CACHE_PROJECTION_TTL",
	"CRM_JWT_SECRET",
	"CRM_HTTP_CORS_ALLOW_ORIGINS",
}

func setEnv(t *testing.T, overrides map[string]string) {
	t.Helper()
	for _, k := range knownEnvKeys {
		t.Setenv(k, "")
	}
	for k, v := range overrides {
		t.Setenv(k, v)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		setEnv(t, nil)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "crm-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "crm", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
		assert.Equal(t, time.Hour, cfg.Idempotency.CleanupInterval)
		assert.Equal(t, 5*time.Minute, cfg.Cache.ProjectionTTL)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
		assert.Contains(t, cfg.HTTP.CORSAllowHeaders, "Idempotency-Key")
	})

	t.Run("loads values from environment variables with CRM prefix", func(t *testing.T) {
		setEnv(t, map[string]string{
			"CRM_APP_NAME":                "test-app",
			"CRM_APP_ENV":                 "testing",
			"CRM_APP_PORT":                "9000",
			"CRM_DATABASE_HOST":           "testdb.local",
			"CRM_DATABASE_PORT":           "5433",
			"CRM_DATABASE_USER":           "testuser",
			"CRM_DATABASE_PASSWORD":       "testpass",
			"CRM_DATABASE_DBNAME":         "testdb",
			"CRM_DATABASE_SSLMODE":        "require",
			"CRM_DATABASE_MAX_OPEN_CONNS": "50",
			"CRM_DATABASE_MAX_IDLE_CONNS": "10",
			"CRM_IDEMPOTENCY_TTL":         "48h",
			"CRM_CACHE_PROJECTION_TTL":    "30s",
		})

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 48*time.Hour, cfg.Idempotency.TTL)
		assert.Equal(t, 30*time.Second, cfg.Cache.ProjectionTTL)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		setEnv(t, map[string]string{
			"CRM_DATABASE_MAX_OPEN_CONNS": "10",
			"CRM_DATABASE_MAX_IDLE_CONNS": "20",
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		setEnv(t, map[string]string{"CRM_DATABASE_MAX_OPEN_CONNS": "0"})

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		setEnv(t, map[string]string{"CRM_DATABASE_MAX_IDLE_CONNS": "-1"})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	// A base that passes every production check; subtests knock out one
	// requirement at a time.
	productionBase := map[string]string{
		"CRM_APP_ENV":           "production",
		"CRM_JWT_SECRET":        "this-is-a-very-secure-jwt-secret-key-32chars",
		"CRM_DATABASE_PASSWORD": "secure-password",
		"CRM_DATABASE_SSLMODE":  "require",
	}

	withBase := func(overrides map[string]string) map[string]string {
		merged := make(map[string]string, len(productionBase)+len(overrides))
		for k, v := range productionBase {
			merged[k] = v
		}
		for k, v := range overrides {
			merged[k] = v
		}
		return merged
	}

	cases := []struct {
		name      string
		overrides map[string]string
		wantErr   string
	}{
		{
			name:      "requires jwt.secret",
			overrides: withBase(map[string]string{"CRM_JWT_SECRET": ""}),
			wantErr:   "jwt.secret is required in production",
		},
		{
			name:      "requires jwt.secret of at least 32 characters",
			overrides: withBase(map[string]string{"CRM_JWT_SECRET": "short-secret"}),
			wantErr:   "jwt.secret must be at least 32 characters",
		},
		{
			name:      "requires database.password",
			overrides: withBase(map[string]string{"CRM_DATABASE_PASSWORD": ""}),
			wantErr:   "database.password is required in production",
		},
		{
			name:      "requires SSL enabled",
			overrides: withBase(map[string]string{"CRM_DATABASE_SSLMODE": "disable"}),
			wantErr:   "database.sslmode cannot be 'disable' in production",
		},
		{
			name:      "rejects wildcard CORS origin",
			overrides: withBase(map[string]string{"CRM_HTTP_CORS_ALLOW_ORIGINS": "*"}),
			wantErr:   "cors_allow_origins cannot be '*'",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, tc.overrides)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("passes with a valid production config", func(t *testing.T) {
		setEnv(t, productionBase)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "user",
			DBName:  "db",
			SSLMode: "disable",
		}

		assert.NotEmpty(t, cfg.DSN())
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.local", Port: 6380}
	assert.Equal(t, "cache.local:6380", cfg.Addr())
}

package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/config"
	"github.com/ZanzyTHEbar/aurameter/internal/database"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"AURA_CONFIG",
	"AURA_ADDR",
	"AURA_DB_BACKEND",
	"AURA_REDIS_DB",
	"AURA_SNAPSHOT_TTL",
	"AURA_CORS_ORIGINS",
	"AURA_COLLECT_DELAY_MIN_MS",
	"AURA_COLLECT_DELAY_MAX_MS",
	"AURA_ENABLE_PROFILING",
}

func clearConfigEnvVars() {
	for _, name := range configEnvVars {
		_ = os.Unsetenv(name)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then the defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Backend(), convey.ShouldEqual, database.BackendSQLite3)
				convey.So(cfg.SnapshotTTL, convey.ShouldEqual, 5*time.Minute)
				convey.So(cfg.CollectDelayMinMS, convey.ShouldEqual, 100)
				convey.So(cfg.CollectDelayMaxMS, convey.ShouldEqual, 150)
				convey.So(cfg.EnableProfiling, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("AURA_ADDR", ":9090")
			_ = os.Setenv("AURA_DB_BACKEND", "postgres")
			_ = os.Setenv("AURA_REDIS_DB", "3")
			_ = os.Setenv("AURA_SNAPSHOT_TTL", "90s")
			_ = os.Setenv("AURA_CORS_ORIGINS", "https://a.example,https://b.example")
			_ = os.Setenv("AURA_ENABLE_PROFILING", "true")

			cfg, err := config.Load()

			convey.Convey("Then env vars override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Backend(), convey.ShouldEqual, database.BackendPostgres)
				convey.So(cfg.RedisDB, convey.ShouldEqual, 3)
				convey.So(cfg.SnapshotTTL, convey.ShouldEqual, 90*time.Second)
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
				convey.So(cfg.EnableProfiling, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := filepath.Join(t.TempDir(), "aurameter.yaml")
			content := "addr: \":7000\"\ndb_backend: sqlite\nleaderboard_ttl: 2m\ncollect_delay_max_ms: 400\n"
			convey.So(os.WriteFile(path, []byte(content), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("AURA_CONFIG", path)

			convey.Convey("Then file values apply", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
				convey.So(cfg.Backend(), convey.ShouldEqual, database.BackendSQLite)
				convey.So(cfg.LeaderboardTTL, convey.ShouldEqual, 2*time.Minute)
				convey.So(cfg.CollectDelayMaxMS, convey.ShouldEqual, 400)
			})

			convey.Convey("Then env vars win over the file", func() {
				_ = os.Setenv("AURA_ADDR", ":7001")
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7001")
			})
		})

		convey.Convey("When the config file is missing", func() {
			_ = os.Setenv("AURA_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load()

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the delay range is inverted", func() {
			_ = os.Setenv("AURA_COLLECT_DELAY_MIN_MS", "500")
			_ = os.Setenv("AURA_COLLECT_DELAY_MAX_MS", "100")

			_, err := config.Load()

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the backend is unknown", func() {
			_ = os.Setenv("AURA_DB_BACKEND", "oracle")

			_, err := config.Load()

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestLoadFile(t *testing.T) {
	convey.Convey("Given an explicit config path", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		path := filepath.Join(t.TempDir(), "cli.yaml")
		convey.So(os.WriteFile(path, []byte("log_level: debug\n"), 0o600), convey.ShouldBeNil)
		_ = os.Setenv("AURA_CONFIG", filepath.Join(t.TempDir(), "ignored.yaml"))

		convey.Convey("Then the path wins over AURA_CONFIG", func() {
			cfg, err := config.LoadFile(path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
		})

		convey.Convey("Then an empty path loads defaults and env only", func() {
			cfg, err := config.LoadFile("")
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
		})
	})
}

func TestCollectDelays(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		min, max, backoff := config.New().CollectDelays()
		convey.So(min, convey.ShouldEqual, 100*time.Millisecond)
		convey.So(max, convey.ShouldEqual, 150*time.Millisecond)
		convey.So(backoff, convey.ShouldEqual, time.Minute)
	})
}

package config_test

import (
	"context"
	"os"
	"runtime"
	"testing"

	"github.com/halloway/vigil/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "vigil.db")
				convey.So(cfg.GameQueueSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
				convey.So(cfg.DefaultLeaderboardLimit, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("VIGIL_ADDR", ":8080")
			_ = os.Setenv("VIGIL_DB_PATH", "/tmp/test.db")
			_ = os.Setenv("VIGIL_QUEUE_SIZE", "5000")
			_ = os.Setenv("VIGIL_WORKER_COUNT", "16")
			_ = os.Setenv("VIGIL_DEDUPE_SIZE", "2500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/test.db")
				convey.So(cfg.GameQueueSize, convey.ShouldEqual, 5000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 2500)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
db_path: "/var/lib/vigil/vigil.db"
queue_size: 30000
worker_count: 24
max_leaderboard_limit: 200
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VIGIL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/var/lib/vigil/vigil.db")
				convey.So(cfg.GameQueueSize, convey.ShouldEqual, 30000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 200)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 30000
worker_count: 24
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VIGIL_CONFIG", tmpFile)
			_ = os.Setenv("VIGIL_ADDR", ":8080")
			_ = os.Setenv("VIGIL_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")          // Overridden by env
				convey.So(cfg.GameQueueSize, convey.ShouldEqual, 30000)   // From file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)        // Overridden by env
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)     // From defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VIGIL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("VIGIL_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("VIGIL_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an out-of-range default limit", func() {
			_ = os.Setenv("VIGIL_DEFAULT_LEADERBOARD_LIMIT", "500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("VIGIL_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"VIGIL_CONFIG",
		"VIGIL_ADDR",
		"VIGIL_DB_PATH",
		"VIGIL_QUEUE_SIZE",
		"VIGIL_WORKER_COUNT",
		"VIGIL_DEDUPE_SIZE",
		"VIGIL_MAX_LEADERBOARD_LIMIT",
		"VIGIL_DEFAULT_LEADERBOARD_LIMIT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "vigil-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}

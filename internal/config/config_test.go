package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
mongo:
  uri: mongodb://db.internal:27017
  database: news
crawl:
  worker_count: 4
  timeout_seconds: 30
  user_agent: press-agent
enrich:
  enabled: true
  max_keywords: 5
schedule:
  at: "05:15"
  timezone: UTC
server:
  port: 9090
logging:
  development: false
  level: debug
sources:
  - name: taz
    base_url: https://taz.de
    collection: taz_articles
    feed_url: https://taz.de/rss.xml
    parser: taz
    worker_count: 2
  - name: generic
    base_url: https://example.org/news
    collection: example_articles
    url_pattern: "/article/"
    timeout_seconds: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "mongodb://db.internal:27017", cfg.Mongo.URI)
	require.Equal(t, "news", cfg.Mongo.Database)
	require.Equal(t, 4, cfg.Crawl.WorkerCount)
	require.Equal(t, "press-agent", cfg.Crawl.UserAgent)
	require.True(t, cfg.Enrich.Enabled)
	require.Equal(t, 5, cfg.Enrich.MaxKeywords)
	require.Equal(t, "05:15", cfg.Schedule.At)
	require.Equal(t, 9090, cfg.Server.Port)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Sources, 2)
	require.Equal(t, "taz", cfg.Sources[0].Name)
	require.Equal(t, "https://taz.de/rss.xml", cfg.Sources[0].FeedURL)
	require.Equal(t, "taz", cfg.Sources[0].Parser)

	require.Equal(t, 2, cfg.Workers(cfg.Sources[0]))
	require.Equal(t, 4, cfg.Workers(cfg.Sources[1]))
	require.Equal(t, 30*time.Second, cfg.FetchTimeout(cfg.Sources[0]))
	require.Equal(t, 5*time.Second, cfg.FetchTimeout(cfg.Sources[1]))
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	require.Equal(t, "presscrawl", cfg.Mongo.Database)
	require.Equal(t, 6, cfg.Crawl.WorkerCount)
	require.Equal(t, 15, cfg.Crawl.TimeoutSeconds)
	require.False(t, cfg.Enrich.Enabled)
	require.Equal(t, "06:30", cfg.Schedule.At)
	require.Equal(t, "Europe/Berlin", cfg.Schedule.Timezone)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Empty(t, cfg.Sources)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	// Misspelled nested knob: must not load and silently run with the
	// default worker count.
	path := writeConfig(t, `
crawl:
  worker_cont: 4
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "worker_cont")

	// Unknown top-level section.
	path = writeConfig(t, `
typo_section:
  enabled: true
`)
	_, err = Load(path)
	require.Error(t, err)

	// Unknown key inside a source entry.
	path = writeConfig(t, `
sources:
  - name: taz
    collection: taz_articles
    base_url: https://taz.de
    worker_cont: 4
`)
	_, err = Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Mongo:  MongoConfig{URI: "mongodb://localhost:27017", Database: "news"},
			Crawl:  CrawlConfig{WorkerCount: 6, TimeoutSeconds: 15},
			Server: ServerConfig{Port: 8080},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Mongo.URI = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Crawl.WorkerCount = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Sources = []SourceConfig{{Name: "taz"}}
	require.Error(t, cfg.Validate(), "source without collection")

	cfg = base()
	cfg.Sources = []SourceConfig{{Name: "taz", Collection: "taz_articles"}}
	require.Error(t, cfg.Validate(), "source without feed_url or base_url")

	cfg = base()
	cfg.Sources = []SourceConfig{{Name: "taz", Collection: "taz_articles", BaseURL: "https://taz.de"}}
	require.NoError(t, cfg.Validate())
}

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/irscrape/internal/checkpoint"
	"github.com/nao1215/irscrape/internal/config"
	"github.com/nao1215/irscrape/internal/pipeline"
	"github.com/nao1215/irscrape/internal/report"
)

// writeConfigFile writes a YAML config file into a temp dir.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".irscrape")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// parseCrawl parses args with the crawl command and builds its config.
func parseCrawl(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	cmd := NewCrawlCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return buildCrawlConfig(cmd, cmd.Flags().Args())
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	for _, name := range []string{
		"config", "log-dir", "xdg", "data-dir", "width", "max-mass", "max-pages",
		"concurrency", "delay", "timeout", "retries", "repeat", "no-log-file",
		"no-ledger", "format",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}

	if err := cmd.Args(cmd, []string{"1", "2"}); err == nil {
		t.Error("expected at most one positional argument")
	}
}

// TestBuildCrawlConfig tests flag, file and argument precedence.
func TestBuildCrawlConfig(t *testing.T) {
	t.Parallel()

	t.Run("file values apply and explicit flags win", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "maxPages: 7\nconcurrency: 4\ndataDir: /srv/raw\n")
		cfg, err := parseCrawl(t, "--config", path, "--max-pages", "2", "--delay", "250ms")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxPages != 2 {
			t.Errorf("expected flag to win, got MaxPages %d", cfg.MaxPages)
		}
		if cfg.Concurrency != 4 || cfg.DataDir != "/srv/raw" {
			t.Errorf("expected file values, got %d %q", cfg.Concurrency, cfg.DataDir)
		}
		if cfg.CrawlDelay != 250*time.Millisecond {
			t.Errorf("unexpected delay %v", cfg.CrawlDelay)
		}
		if cfg.ConfigFilePath != path {
			t.Errorf("expected ConfigFilePath %q, got %q", path, cfg.ConfigFilePath)
		}
		if cfg.StartMassOverride {
			t.Error("expected no start mass override")
		}
	})

	t.Run("positional start mass overrides checkpoint", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseCrawl(t, "--config", writeConfigFile(t, ""), "120.5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.StartMass != 120.5 || !cfg.StartMassOverride {
			t.Errorf("unexpected start %v override=%v", cfg.StartMass, cfg.StartMassOverride)
		}
	})

	t.Run("switches turn off file and ledger", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseCrawl(t, "--config", writeConfigFile(t, ""), "--no-ledger", "--no-log-file", "-r")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.UseLedger || cfg.LogToFile || !cfg.RepeatDownload {
			t.Errorf("unexpected switches %+v", cfg)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		_, err := parseCrawl(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	for _, arg := range []string{"abc", "-5", "NaN", "+Inf"} {
		t.Run("invalid start mass "+arg, func(t *testing.T) {
			t.Parallel()

			cmd := NewCrawlCmd()
			if err := cmd.ParseFlags([]string{"--config", writeConfigFile(t, "")}); err != nil {
				t.Fatal(err)
			}
			if _, err := buildCrawlConfig(cmd, []string{arg}); err == nil {
				t.Errorf("expected error for %q", arg)
			}
		})
	}
}

// TestStartMass tests how the first window start is chosen.
func TestStartMass(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newStore := func(t *testing.T, content string) *checkpoint.Store {
		t.Helper()
		path := filepath.Join(t.TempDir(), "progress")
		if content != "" {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatal(err)
			}
		}
		return checkpoint.NewStore(path)
	}

	tests := []struct {
		name     string
		content  string
		override bool
		want     float64
	}{
		{"no checkpoint uses configured start", "", false, 10},
		{"checkpoint resumes", "128.17\n", false, 128.17},
		{"argument beats checkpoint", "128.17\n", true, 42},
		{"corrupt checkpoint is ignored", "garbage\n", false, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			if tt.override {
				cfg.StartMass = 42
				cfg.StartMassOverride = true
			}

			got, err := startMass(cfg, newStore(t, tt.content), logger)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// fakeWebBook serves one search page listing a single compound whose
// detail page already shows the spectrum.
func fakeWebBook(searchBody string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("Value") == "10-310":
			_, _ = io.WriteString(w, searchBody)
		case q.Has("Value"):
			_, _ = io.WriteString(w, `<html><body><p>No matching species found</p></body></html>`)
		case q.Get("ID") == "C74828":
			_, _ = io.WriteString(w, `<html><body><h1 id="Top">Methane</h1><div id="jcamp-tabs"></div>
<a href="/cgi/cbook.cgi?JCAMP=C74828&amp;Index=0&amp;Type=IR">JCAMP-DX</a>
<a href="/cgi/cbook.cgi?Str2File=C74828">2D Mol file</a></body></html>`)
		case q.Has("JCAMP"):
			_, _ = io.WriteString(w, "##TITLE=METHANE\n##END=\n")
		case q.Has("Str2File"):
			_, _ = io.WriteString(w, "C74828\n\nM  END\n")
		default:
			http.NotFound(w, r)
		}
	}))
}

const methaneSearch = `<html><body><ol>
<li><a href="/cgi/cbook.cgi?ID=C74828&amp;Units=SI">Methane</a> <strong>16.04</strong></li>
</ol></body></html>`

func crawlConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.NewConfig()
	cfg.BaseURL = baseURL + "/cgi/cbook.cgi"
	cfg.DataDir = filepath.Join(root, "raw_data")
	cfg.LogDir = filepath.Join(root, "logging")
	cfg.CrawlDelay = 0
	cfg.Timeout = 5 * time.Second
	cfg.MaxMass = 300
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid config: %v", err)
	}
	return cfg
}

// TestRunCrawl runs the whole command stack against a fake WebBook.
func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("downloads files, checkpoints and reports", func(t *testing.T) {
		t.Parallel()

		server := fakeWebBook(methaneSearch)
		defer server.Close()
		cfg := crawlConfig(t, server.URL)

		// A partial file left by an earlier crash is cleaned up.
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			t.Fatal(err)
		}
		partial := filepath.Join(cfg.DataDir, ".Methane.jdx.123.part")
		if err := os.WriteFile(partial, []byte("half"), 0600); err != nil {
			t.Fatal(err)
		}

		var out, console bytes.Buffer
		if err := runCrawl(context.Background(), cfg, report.NewSimpleWriter(&out), &console); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, name := range []string{"Methane.jdx", "Methane.mol"} {
			if _, err := os.Stat(filepath.Join(cfg.DataDir, name)); err != nil {
				t.Errorf("expected %s: %v", name, err)
			}
		}
		if _, err := os.Stat(partial); !os.IsNotExist(err) {
			t.Error("expected partial file to be removed")
		}

		// The empty window after Methane is skipped past the maximum mass.
		mass, ok, err := checkpoint.NewStore(cfg.ProgressPath()).Load()
		if err != nil || !ok || math.Abs(mass-316.04) > 1e-9 {
			t.Errorf("expected checkpoint 316.04, got %v %v %v", mass, ok, err)
		}

		logs, err := filepath.Glob(filepath.Join(cfg.LogDir, "*.log"))
		if err != nil || len(logs) != 1 {
			t.Fatalf("expected one log file, got %v %v", logs, err)
		}
		logData, err := os.ReadFile(logs[0])
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(logData), "checkpoint saved") {
			t.Errorf("expected info events in log file, got %q", logData)
		}
		if !strings.Contains(string(logData), "CRAWL SUMMARY") {
			t.Errorf("expected run summary in log file, got %q", logData)
		}

		if !strings.Contains(out.String(), pipeline.StopMaxMass) {
			t.Errorf("expected summary with stop reason, got %q", out.String())
		}

		var rep bytes.Buffer
		cmd := NewReportCmd()
		cmd.SetOut(&rep)
		cmd.SetArgs([]string{"--config", writeConfigFile(t, ""), "--log-dir", cfg.LogDir, "--json"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("report failed: %v", err)
		}
		if !strings.Contains(rep.String(), `"downloads": 2`) {
			t.Errorf("expected two downloads in report, got %s", rep.String())
		}
	})

	t.Run("resumes from the checkpoint", func(t *testing.T) {
		t.Parallel()

		server := fakeWebBook(methaneSearch)
		defer server.Close()
		cfg := crawlConfig(t, server.URL)
		cfg.LogToFile = false
		cfg.UseLedger = false

		if err := checkpoint.NewStore(cfg.ProgressPath()).Save(500); err != nil {
			t.Fatal(err)
		}

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, report.NewJSONWriter(&out), io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), `"start_mass":500`) {
			t.Errorf("expected run to start at 500, got %s", out.String())
		}
		if entries, _ := os.ReadDir(cfg.DataDir); len(entries) != 0 {
			t.Errorf("expected no downloads, got %d files", len(entries))
		}
	})

	t.Run("unparsable search page fails", func(t *testing.T) {
		t.Parallel()

		server := fakeWebBook(`<html><body><p>Service unavailable</p></body></html>`)
		defer server.Close()
		cfg := crawlConfig(t, server.URL)
		cfg.LogToFile = false

		var out bytes.Buffer
		err := runCrawl(context.Background(), cfg, report.NewSimpleWriter(&out), io.Discard)
		if !errors.Is(err, pipeline.ErrPageParse) {
			t.Fatalf("expected ErrPageParse, got %v", err)
		}
		if !strings.Contains(out.String(), pipeline.StopFailed) {
			t.Errorf("expected summary even on failure, got %q", out.String())
		}
		if _, err := os.Stat(cfg.ProgressPath()); !os.IsNotExist(err) {
			t.Error("expected no checkpoint after a failed page")
		}
	})
}

// TestReportCmd tests the report command.
func TestReportCmd(t *testing.T) {
	t.Parallel()

	t.Run("missing ledger", func(t *testing.T) {
		t.Parallel()

		cmd := NewReportCmd()
		cmd.SetOut(io.Discard)
		cmd.SetArgs([]string{"--config", writeConfigFile(t, ""), "--log-dir", t.TempDir()})
		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "no ledger") {
			t.Errorf("expected missing ledger error, got %v", err)
		}
	})

	t.Run("json and markdown are exclusive", func(t *testing.T) {
		t.Parallel()

		cmd := NewReportCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"--config", writeConfigFile(t, ""), "--json", "--markdown"})
		if err := cmd.Execute(); err == nil {
			t.Error("expected error for --json with --markdown")
		}
	})

	t.Run("writes markdown to a file", func(t *testing.T) {
		t.Parallel()

		server := fakeWebBook(methaneSearch)
		defer server.Close()
		cfg := crawlConfig(t, server.URL)
		cfg.LogToFile = false
		if err := runCrawl(context.Background(), cfg, report.NewSimpleWriter(io.Discard), io.Discard); err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		outPath := filepath.Join(t.TempDir(), "reports", "ledger.md")
		cmd := NewReportCmd()
		cmd.SetArgs([]string{"--config", writeConfigFile(t, ""), "-l", cfg.LogDir, "-m", "-o", outPath})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		if !strings.Contains(string(data), "# irscrape Ledger Report") || !strings.Contains(string(data), "Methane.jdx") {
			t.Errorf("unexpected report:\n%s", data)
		}
	})
}

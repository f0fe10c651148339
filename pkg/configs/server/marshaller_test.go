package server_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opst/wlconf/pkg/cache"
	"github.com/opst/wlconf/pkg/configs/server"
)

func TestUnmarshal(t *testing.T) {
	t.Run("it loads config from yaml", func(t *testing.T) {
		result, err := server.Unmarshal([]byte(`
port: 8080
cache:
  maxSize: 200
  sweepInterval: 30s
  policy:
    config: medium_term
    list: no_cache
rollback:
  maxRecords: 10
  maxAge: 24h
cluster:
  kubeconfig: /etc/wlconf/kubeconfig
  requestTimeout: 5s
audit:
  database: postgres://wlconf@db:5432/wlconf
auth:
  signKey: secret
`))
		if err != nil {
			t.Fatal(err)
		}

		for name, testcase := range map[string]struct {
			actual   any
			expected any
		}{
			".port":                   {actual: result.Port(), expected: int32(8080)},
			".cache.maxSize":          {actual: result.Cache().MaxSize(), expected: 200},
			".cache.sweepInterval":    {actual: result.Cache().SweepInterval(), expected: 30 * time.Second},
			".cache.policy.config":    {actual: result.Cache().Policy().Config(), expected: cache.MediumTerm},
			".cache.policy.list":      {actual: result.Cache().Policy().List(), expected: cache.NoCache},
			".rollback.maxRecords":    {actual: result.Rollback().MaxRecords(), expected: 10},
			".rollback.maxAge":        {actual: result.Rollback().MaxAge(), expected: 24 * time.Hour},
			".cluster.kubeconfig":     {actual: result.Cluster().Kubeconfig(), expected: "/etc/wlconf/kubeconfig"},
			".cluster.requestTimeout": {actual: result.Cluster().RequestTimeout(), expected: 5 * time.Second},
			".audit.database":         {actual: result.Audit().Database(), expected: "postgres://wlconf@db:5432/wlconf"},
			".auth.signKey":           {actual: result.Auth().SignKey(), expected: "secret"},
		} {
			t.Run(name, func(t *testing.T) {
				if testcase.actual != testcase.expected {
					t.Errorf("mismatch. (expected, actual) = (%v, %v)", testcase.expected, testcase.actual)
				}
			})
		}
	})

	t.Run("it fills defaults", func(t *testing.T) {
		result, err := server.Unmarshal([]byte("port: 8080\n"))
		if err != nil {
			t.Fatal(err)
		}
		if result.Cache().MaxSize() != 1000 || result.Cache().SweepInterval() != 60*time.Second {
			t.Errorf("unexpected cache config: %+v", result.Cache())
		}
		if result.Cache().Policy().Config() != cache.ShortTerm || result.Cache().Policy().List() != cache.MediumTerm {
			t.Errorf("unexpected cache policy: %+v", result.Cache().Policy())
		}
		if result.Rollback().MaxRecords() != 50 || result.Rollback().MaxAge() != 0 {
			t.Errorf("unexpected rollback config: %+v", result.Rollback())
		}
		if result.Cluster().RequestTimeout() != 10*time.Second {
			t.Errorf("unexpected cluster config: %+v", result.Cluster())
		}
		if result.Audit().Database() != "" || result.Auth().SignKey() != "" {
			t.Errorf("optional values are filled")
		}
	})

	for name, testcase := range map[string]struct {
		yaml    string
		message string
	}{
		"missing port":        {yaml: "cache:\n  maxSize: 10\n", message: "(root).port is required"},
		"broken duration":     {yaml: "port: 1\ncache:\n  sweepInterval: soon\n", message: "(root).cache.sweepInterval"},
		"negative size":       {yaml: "port: 1\ncache:\n  maxSize: -1\n", message: "(root).cache.maxSize"},
		"non-positive maxAge": {yaml: "port: 1\nrollback:\n  maxAge: 0s\n", message: "(root).rollback.maxAge"},
		"unknown policy":      {yaml: "port: 1\ncache:\n  policy:\n    list: forever\n", message: "(root).cache.policy.list"},
		"empty document":      {yaml: "", message: "empty"},
	} {
		t.Run("it rejects "+name, func(t *testing.T) {
			_, err := server.Unmarshal([]byte(testcase.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), testcase.message) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadServerConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 8080\nauth:\n  signKey: from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("sign key in the file is used", func(t *testing.T) {
		t.Setenv(server.EnvSignKey, "")
		result, err := server.LoadServerConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if result.Auth().SignKey() != "from-file" {
			t.Errorf("unexpected sign key: %s", result.Auth().SignKey())
		}
	})

	t.Run("environment variable overrides sign key", func(t *testing.T) {
		t.Setenv(server.EnvSignKey, "from-env")
		result, err := server.LoadServerConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if result.Auth().SignKey() != "from-env" {
			t.Errorf("unexpected sign key: %s", result.Auth().SignKey())
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := server.LoadServerConfig(filepath.Join(t.TempDir(), "nothing.yaml")); err == nil {
			t.Error("expected error")
		}
	})
}

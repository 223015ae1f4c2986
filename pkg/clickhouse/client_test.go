package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.Host = "ch.local"
	cfg.Database = "moatline"
	cfg.Password = "p@ss"
	cfg.MaxExecTime = 30 * time.Second
	cfg.AsyncInsert = true
	cfg.WaitForAsync = true

	u, err := url.Parse(buildDSN(cfg))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/moatline" {
		t.Fatalf("dsn = %s", u)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" {
		t.Fatalf("password not preserved: %q", pw)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "5s" || q.Get("max_execution_time") != "30" || q.Get("wait_for_async_insert") != "1" {
		t.Fatalf("query = %v", q)
	}
}

func TestBuildDSNHTTP(t *testing.T) {
	cfg := defaultConfig()
	cfg.Host = "ch.local"
	cfg.Port = 8123
	cfg.UseHTTP = true
	cfg.DialTimeout = 0
	cfg.ReadTimeout = 0

	if got := buildDSN(cfg); got != "http://default:@ch.local:8123/default" {
		t.Fatalf("dsn = %s", got)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatalf("expected error without host")
	}
}

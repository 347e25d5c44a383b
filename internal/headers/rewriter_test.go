package headers

import (
	"net/http"
	"testing"
)

func TestFilter_StaticHopByHop(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "keep-alive")
	h.Set("Keep-Alive", "timeout=5")
	h.Set("Proxy-Authorization", "secret")
	h.Set("TE", "trailers")
	h.Set("Transfer-Encoding", "chunked")
	h.Set("Upgrade", "websocket")
	h.Set("X-Custom", "keep-me")

	Filter(h)

	for _, name := range []string{"Connection", "Keep-Alive", "Proxy-Authorization", "TE", "Transfer-Encoding", "Upgrade"} {
		if h.Get(name) != "" {
			t.Errorf("expected %s to be filtered, got %q", name, h.Get(name))
		}
	}
	if h.Get("X-Custom") != "keep-me" {
		t.Errorf("expected X-Custom to survive filtering")
	}
}

func TestFilter_ConnectionTokens(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "X-Secret-Token, X-Other")
	h.Set("X-Secret-Token", "abc")
	h.Set("X-Other", "def")
	h.Set("X-Keep", "ghi")

	Filter(h)

	if h.Get("X-Secret-Token") != "" || h.Get("X-Other") != "" {
		t.Errorf("headers named in Connection should be filtered")
	}
	if h.Get("X-Keep") != "ghi" {
		t.Errorf("unrelated header should survive")
	}
}

func TestPrepareUpstream_XFF_AppendsToExisting(t *testing.T) {
	in := http.Header{}
	in.Set("X-Forwarded-For", "203.0.113.1")
	in.Set("Host", "should-be-dropped")
	in.Set("Connection", "close")

	out := PrepareUpstream(in, "10.0.0.5:54321", "https", "app.example.com")

	if got := out.Get("X-Forwarded-For"); got != "203.0.113.1, 10.0.0.5" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}
	if out.Get("Host") != "" {
		t.Errorf("Host header should not be copied")
	}
	if out.Get("X-Forwarded-Proto") != "https" {
		t.Errorf("X-Forwarded-Proto: got %q", out.Get("X-Forwarded-Proto"))
	}
	if out.Get("X-Forwarded-Host") != "app.example.com" {
		t.Errorf("X-Forwarded-Host: got %q", out.Get("X-Forwarded-Host"))
	}
	if out.Get("Connection") != "" {
		t.Errorf("Connection should be filtered")
	}
}

func TestPrepareUpstream_DoesNotMutateInput(t *testing.T) {
	in := http.Header{}
	in.Set("Connection", "close")
	in.Set("X-Custom", "v")

	_ = PrepareUpstream(in, "10.0.0.1:1", "http", "h")

	if in.Get("Connection") != "close" {
		t.Errorf("input header must not be mutated")
	}
}

func TestMerge_LaterOverridesEarlier(t *testing.T) {
	dst := http.Header{}
	dst.Set("Cache-Control", "max-age=60")
	dst.Set("ETag", `"old"`)

	src := http.Header{}
	src.Set("Cache-Control", "max-age=120")

	Merge(dst, src)

	if dst.Get("Cache-Control") != "max-age=120" {
		t.Errorf("Cache-Control should be overridden by src")
	}
	if dst.Get("ETag") != `"old"` {
		t.Errorf("ETag absent from src should survive")
	}
}

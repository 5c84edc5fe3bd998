package monitor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientCheckStatusCodes(t *testing.T) {
	cases := []struct {
		code int
		ok   bool
	}{
		{http.StatusOK, true},
		{http.StatusNoContent, true},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(respond(tc.code))
		res := NewClient(srv.URL).Check(context.Background(), HealthEndpoint)
		srv.Close()

		if res.OK != tc.ok || res.StatusCode != tc.code {
			t.Fatalf("status %d: expected ok=%v, got %+v", tc.code, tc.ok, res)
		}
		if !tc.ok && (res.Err == nil || res.Err.Kind != KindHTTP) {
			t.Fatalf("status %d: expected http error kind, got %+v", tc.code, res.Err)
		}
		if tc.ok && res.Err != nil {
			t.Fatalf("status %d: unexpected error %v", tc.code, res.Err)
		}
	}
}

func TestClientSendsJSONRequests(t *testing.T) {
	type seen struct{ method, path, body, accept string }
	requests := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		requests <- seen{r.Method, r.URL.Path, string(b), r.Header.Get("Accept")}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := NewClient(srv.URL).Check(context.Background(), WakeEndpoints[2])
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	got := <-requests
	gotMethod, gotPath, gotBody, gotAccept := got.method, got.path, got.body, got.accept
	if gotMethod != http.MethodPost || gotPath != "/ai-enhance" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if !strings.Contains(gotBody, `"section":"summary"`) || !strings.Contains(gotBody, `"content":"Server wake-up test"`) {
		t.Fatalf("unexpected body %s", gotBody)
	}
	if gotAccept != "application/json" {
		t.Fatalf("expected json accept header, got %q", gotAccept)
	}
}

func TestClientTimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(hang))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	res := NewClient(srv.URL).Check(ctx, HealthEndpoint)
	if res.OK || res.Err == nil || res.Err.Kind != KindTimeout {
		t.Fatalf("expected timeout, got %+v", res)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", res.Err.Err)
	}
}

func TestWakeEndpointOrder(t *testing.T) {
	want := []string{"GET /", "GET /health", "POST /ai-enhance"}
	if len(WakeEndpoints) != len(want) {
		t.Fatalf("expected %d wake endpoints, got %d", len(want), len(WakeEndpoints))
	}
	for i, ep := range WakeEndpoints {
		if got := ep.Method + " " + ep.Path; got != want[i] {
			t.Fatalf("endpoint %d: expected %s, got %s", i, want[i], got)
		}
	}
}

func TestCheckErrorMessage(t *testing.T) {
	cases := []struct {
		err  *CheckError
		want string
	}{
		{&CheckError{Kind: KindTimeout, Err: context.DeadlineExceeded}, "Request timeout"},
		{&CheckError{Kind: KindHTTP, StatusCode: 502}, "HTTP 502 Bad Gateway"},
		{&CheckError{Kind: KindTransport, Err: errors.New("dial tcp: connection refused")}, "dial tcp: connection refused"},
		{&CheckError{Kind: KindTransport}, "Connection failed"},
	}
	for _, tc := range cases {
		if got := tc.err.Message(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

package httptransport

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reusability-token/internal/ids"
	"reusability-token/internal/report"
)

func newTestServer(t *testing.T) (*httptest.Server, *report.Recorder) {
	t.Helper()
	rec := report.NewRecorder(32)
	srv := httptest.NewServer(NewRouter(rec))
	t.Cleanup(srv.Close)
	return srv, rec
}

func seed(t *testing.T, rec *report.Recorder, days int) {
	t.Helper()
	ctx := context.Background()
	if err := rec.ObserveStart(ctx, report.Summary{RunID: "run-http", Outcome: report.OutcomeRunning}); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < days; i++ {
		d := report.Day{Day: i, Time: i + 1}
		if i == days-1 {
			d.Blacklisted = []ids.Address{3}
		}
		if err := rec.ObserveDay(ctx, d); err != nil {
			t.Fatalf("day %d: %v", i, err)
		}
	}
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return out
}

func TestRunEndpoints(t *testing.T) {
	srv, rec := newTestServer(t)

	if got := getJSON(t, srv.URL+"/healthz", http.StatusOK); got["ok"] != true {
		t.Fatalf("healthz = %v", got)
	}
	if got := getJSON(t, srv.URL+"/api/run", http.StatusNotFound); got["error"] != "run_not_started" {
		t.Fatalf("run before start = %v", got)
	}
	if got := getJSON(t, srv.URL+"/api/shops/blacklisted", http.StatusOK); len(got["shops"].([]any)) != 0 {
		t.Fatalf("blacklisted before any day = %v", got)
	}

	seed(t, rec, 4)

	if got := getJSON(t, srv.URL+"/api/run", http.StatusOK); got["run_id"] != "run-http" {
		t.Fatalf("run = %v", got)
	}
	page := getJSON(t, srv.URL+"/api/days?limit=2&offset=1", http.StatusOK)
	items := page["items"].([]any)
	if len(items) != 2 || page["total"] != float64(4) || items[0].(map[string]any)["day"] != float64(1) {
		t.Fatalf("days page = %v", page)
	}
	if got := getJSON(t, srv.URL+"/api/days/latest", http.StatusOK); got["day"] != float64(3) {
		t.Fatalf("latest = %v", got)
	}
	if got := getJSON(t, srv.URL+"/api/days/2", http.StatusOK); got["time"] != float64(3) {
		t.Fatalf("day 2 = %v", got)
	}
	if got := getJSON(t, srv.URL+"/api/days/9", http.StatusNotFound); got["error"] != "day_not_found" {
		t.Fatalf("day 9 = %v", got)
	}
	if got := getJSON(t, srv.URL+"/api/days/abc", http.StatusBadRequest); got["error"] != "invalid_day" {
		t.Fatalf("day abc = %v", got)
	}
	black := getJSON(t, srv.URL+"/api/shops/blacklisted", http.StatusOK)
	if shops := black["shops"].([]any); len(shops) != 1 || shops[0] != float64(3) || black["day"] != float64(3) {
		t.Fatalf("blacklisted = %v", black)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestFeedSSEReplaysAfterLastEventID(t *testing.T) {
	srv, rec := newTestServer(t)
	seed(t, rec, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/feed/events", nil)
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET feed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	replayed := readEventIDs(t, reader, 2)
	if replayed[0] != "2" || replayed[1] != "3" {
		t.Fatalf("replayed ids = %v, want [2 3]", replayed)
	}

	_ = rec.ObserveFinish(context.Background(), report.Summary{RunID: "run-http", Outcome: report.OutcomeCompleted})
	if got := readEventIDs(t, reader, 1); got[0] != "4" {
		t.Fatalf("live id = %v, want 4", got)
	}
}

func readEventIDs(t *testing.T, r *bufio.Reader, n int) []string {
	t.Helper()
	var out []string
	for len(out) < n {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v (got %v)", err, out)
		}
		if id, ok := strings.CutPrefix(strings.TrimSpace(line), "id: "); ok {
			out = append(out, id)
		}
	}
	return out
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"limit=0&offset=-1", 1, 0},
		{"limit=9999", 500, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=x", 50, 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/days?"+tt.query, nil)
		l, o := ParsePagination(r)
		if l != tt.wantLimit || o != tt.wantOffset {
			t.Errorf("ParsePagination(%q) = (%d, %d), want (%d, %d)", tt.query, l, o, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestEventIDOrdering(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"2", "1", true},
		{"10", "9", true},
		{"9", "10", false},
		{"3", "3", false},
		{"1", "", true},
	}
	for _, tt := range tests {
		if got := after(tt.a, tt.b); got != tt.want {
			t.Errorf("after(%q, %q) = %v", tt.a, tt.b, got)
		}
	}
}

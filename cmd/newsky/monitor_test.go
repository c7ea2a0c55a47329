package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deusflow/newsky/internal/metrics"
)

func TestHealthEndpoint(t *testing.T) {
	m := metrics.New()
	srv := httptest.NewServer(monitoringHandler(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthy status = %d", resp.StatusCode)
	}

	m.SetError("authentication failed")
	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "error" || body["last_error"] != "authentication failed" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.IncrementPostsPublished()
	srv := httptest.NewServer(monitoringHandler(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats["posts_published"].(float64) != 1 {
		t.Errorf("posts_published = %v", stats["posts_published"])
	}
}

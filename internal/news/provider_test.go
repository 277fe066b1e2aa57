package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFeedClient_Latest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			t.Errorf("missing token param")
		}
		w.Write([]byte(`[
			{"id":101,"headline":"Chipmaker beats","summary":"s","source":"wire","url":"https://example.com/a","datetime":1748865600},
			{"id":102,"headline":"No timestamp","source":"wire","url":"https://example.com/b","datetime":0}
		]`))
	}))
	defer srv.Close()

	fc := NewFeedClient(FeedConfig{Name: "alpha", BaseURL: srv.URL, APIKey: "secret"})
	items, err := fc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].ID != "101" || items[0].Provider != "alpha" {
		t.Fatalf("item = %+v", items[0])
	}
	if items[0].PublishedAt.IsZero() {
		t.Fatalf("timestamp not parsed")
	}
	if !items[1].PublishedAt.IsZero() {
		t.Fatalf("zero datetime must stay a zero time, got %v", items[1].PublishedAt)
	}
}

func TestFeedClient_HTTPErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fc := NewFeedClient(FeedConfig{Name: "alpha", BaseURL: srv.URL})
	if _, err := fc.Latest(context.Background()); err == nil {
		t.Fatalf("expected error on 503")
	}
}

func TestHTTPClassifier_ClampsImportance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing auth header")
		}
		w.Write([]byte(`{"summary":"s","importance_score":250,"importance_category":"high"}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(ClassifierConfig{BaseURL: srv.URL, APIKey: "key", Timeout: 5 * time.Second})
	analysis, err := c.Classify(context.Background(), "headline", "body")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if analysis.ImportanceScore != 100 {
		t.Fatalf("importance = %d, want clamp to 100", analysis.ImportanceScore)
	}
}

func TestHTTPClassifier_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(ClassifierConfig{BaseURL: srv.URL})
	if _, err := c.Classify(context.Background(), "h", "b"); err == nil {
		t.Fatalf("expected parse error")
	}
}

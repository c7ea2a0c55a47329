package bluesky

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testCID is a CIDv1 (raw, sha2-256) of the bytes "jpeg-bytes".
const testCID = "bafkreiabchn4hgfzj2wnuz2zqcoakbjqq2hopyytwm4byl4vz2fvkmy4ka"

func TestCreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.server.createSession" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["identifier"] != "me.bsky.social" || body["password"] != "secret" {
			t.Errorf("unexpected body %v", body)
		}
		w.Write([]byte(`{"accessJwt":"tok","refreshJwt":"ref","did":"did:plc:abc","handle":"me.bsky.social"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client())
	s, err := c.CreateSession(context.Background(), "me.bsky.social", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if s.AccessJwt != "tok" || s.Did != "did:plc:abc" || s.Handle != "me.bsky.social" {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestCreateSessionUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"AuthenticationRequired","message":"Invalid identifier or password"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client()).CreateSession(context.Background(), "a", "b")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || !strings.Contains(apiErr.Body, "AuthenticationRequired") {
		t.Errorf("unexpected APIError %+v", apiErr)
	}
	if apiErr.Method != "createSession" {
		t.Errorf("Method = %q", apiErr.Method)
	}
}

func TestUploadBlob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.repo.uploadBlob" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		if r.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		data, _ := io.ReadAll(r.Body)
		if string(data) != "jpeg-bytes" {
			t.Errorf("body = %q", data)
		}
		w.Write([]byte(`{"blob":{"$type":"blob","ref":{"$link":"` + testCID + `"},"mimeType":"image/jpeg","size":10}}`))
	}))
	defer server.Close()

	blob, err := NewClient(server.URL, server.Client()).UploadBlob(context.Background(), "tok", "image/jpeg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if blob.Ref.String() != testCID || blob.MimeType != "image/jpeg" || blob.Size != 10 {
		t.Errorf("unexpected blob %+v", blob)
	}
}

func TestCreateRecordPayload(t *testing.T) {
	var got struct {
		Repo       string          `json:"repo"`
		Collection string          `json:"collection"`
		Record     json.RawMessage `json:"record"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"uri":"at://did/app.bsky.feed.post/1","cid":"c"}`))
	}))
	defer server.Close()

	created := time.Date(2025, 2, 3, 4, 5, 6, 7_000_000, time.FixedZone("CET", 3600))
	post := NewPost("Ä\n\nhttp://x", "http://x", External{Uri: "http://x", Title: "Ä", Description: "d"}, created)

	out, err := NewClient(server.URL, server.Client()).CreateRecord(context.Background(), "tok", "did:plc:abc", PostCollection, post)
	if err != nil {
		t.Fatal(err)
	}
	if out.Uri != "at://did/app.bsky.feed.post/1" {
		t.Errorf("Uri = %q", out.Uri)
	}
	if got.Repo != "did:plc:abc" || got.Collection != PostCollection {
		t.Errorf("unexpected repo/collection %q %q", got.Repo, got.Collection)
	}

	var record map[string]any
	if err := json.Unmarshal(got.Record, &record); err != nil {
		t.Fatal(err)
	}
	if record["$type"] != PostCollection {
		t.Errorf("$type = %v", record["$type"])
	}
	if record["createdAt"] != "2025-02-03T03:05:06.007Z" {
		t.Errorf("createdAt = %v", record["createdAt"])
	}
	embed := record["embed"].(map[string]any)
	if embed["$type"] != "app.bsky.embed.external" {
		t.Errorf("embed type = %v", embed["$type"])
	}
	if _, ok := embed["external"].(map[string]any)["thumb"]; ok {
		t.Error("thumb must be omitted when absent")
	}
	facet := record["facets"].([]any)[0].(map[string]any)
	index := facet["index"].(map[string]any)
	if index["byteStart"].(float64) != 4 || index["byteEnd"].(float64) != 12 {
		t.Errorf("unexpected facet index %v", index)
	}
	feature := facet["features"].([]any)[0].(map[string]any)
	if feature["$type"] != "app.bsky.richtext.facet#link" || feature["uri"] != "http://x" {
		t.Errorf("unexpected facet feature %v", feature)
	}
}

func TestCreateRecordRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"InvalidRecord","message":"text too long"}`))
	}))
	defer server.Close()

	post := NewPost("t", "", External{}, time.Now())
	_, err := NewClient(server.URL, server.Client()).CreateRecord(context.Background(), "tok", "r", PostCollection, post)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || !strings.Contains(apiErr.Body, "text too long") {
		t.Errorf("unexpected APIError %+v", apiErr)
	}
}

func TestCreateRecordUndecodableSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	post := NewPost("t", "", External{}, time.Now())
	_, err := NewClient(server.URL, server.Client()).CreateRecord(context.Background(), "tok", "r", PostCollection, post)
	if !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable, got %v", err)
	}
}

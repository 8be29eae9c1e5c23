package wordpress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSealerRoundTrip(t *testing.T) {
	identity, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() error = %v", err)
	}
	sealer, err := NewSealer(identity)
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	sealed, err := sealer.Seal("abcd efgh ijkl mnop")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if sealed == "abcd efgh ijkl mnop" {
		t.Fatalf("expected sealed value to differ from plaintext")
	}

	opened, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if opened != "abcd efgh ijkl mnop" {
		t.Fatalf("expected round trip, got %q", opened)
	}
}

func TestSealerRejectsForeignCiphertext(t *testing.T) {
	first, _ := GenerateIdentity()
	second, _ := GenerateIdentity()
	sealerA, _ := NewSealer(first)
	sealerB, _ := NewSealer(second)

	sealed, err := sealerA.Seal("secret")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if _, err := sealerB.Open(sealed); err == nil {
		t.Fatalf("expected error opening with another identity")
	}
}

func TestClientGetPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blog/wp-json/wp/v2/posts/42" {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "editor" || pass != "app-pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"date_gmt":"2024-05-01T10:00:00","modified_gmt":"2024-05-02T11:30:00","status":"publish","link":"https://example.com/hello","title":{"rendered":"Hello &amp; welcome"}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Timeout: time.Second})
	post, err := client.GetPost(context.Background(), Credentials{SiteURL: server.URL + "/blog/", Username: "editor", Password: "app-pass"}, 42)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if post.ID != 42 || post.Status != "publish" || post.Title != "Hello & welcome" {
		t.Fatalf("unexpected post: %+v", post)
	}
	if !post.Date.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", post.Date)
	}
	if post.Modified.Before(post.Date) {
		t.Fatalf("expected modified after date")
	}
}

func TestClientGetPostErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wp-json/wp/v2/posts/7" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{})
	credentials := Credentials{SiteURL: server.URL, Username: "u", Password: "p"}

	if _, err := client.GetPost(context.Background(), credentials, 1); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}

	_, err := client.GetPost(context.Background(), credentials, 7)
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected RemoteError 500, got %v", err)
	}

	if _, err := client.GetPost(context.Background(), Credentials{SiteURL: "not a url"}, 1); err == nil {
		t.Fatalf("expected invalid site url error")
	}
}

package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIsSubordinate(t *testing.T) {
	manager := uuid.New()
	member := uuid.New()
	stranger := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", got)
		}
		switch {
		case strings.Contains(r.URL.Path, manager.String()+"/subordinates/"+member.String()):
			w.Write([]byte(`{"subordinate":true}`))
		case strings.Contains(r.URL.Path, manager.String()+"/subordinates/"+stranger.String()):
			w.Write([]byte(`{"subordinate":false}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ok, err := client.IsSubordinate(context.Background(), manager, member)
	if err != nil || !ok {
		t.Fatalf("expected subordinate, got ok=%v err=%v", ok, err)
	}
	ok, err = client.IsSubordinate(context.Background(), manager, stranger)
	if err != nil || ok {
		t.Fatalf("expected not subordinate, got ok=%v err=%v", ok, err)
	}
	ok, err = client.IsSubordinate(context.Background(), uuid.New(), uuid.New())
	if err != nil || ok {
		t.Fatalf("unknown pair should be false without error, got ok=%v err=%v", ok, err)
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient("", "", time.Second); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

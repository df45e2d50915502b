package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"studieo/internal/domain/notification"
)

func TestClientSend_Success(t *testing.T) {
	var got sendRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("expected request body decoded, got %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-123", "no-reply@studieo.app", server.Client())
	err := client.Send(context.Background(), notification.Message{
		Template: notification.TemplateTeamInvite,
		To:       notification.Recipient{Name: "Mate", Email: "mate@test"},
		Params:   map[string]string{"project_title": "Search Engine"},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if gotAuth != "Bearer key-123" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if got.Template != notification.TemplateTeamInvite {
		t.Fatalf("expected template in payload, got %q", got.Template)
	}
	if got.From != "no-reply@studieo.app" {
		t.Fatalf("expected from address, got %q", got.From)
	}
	if got.To.Email != "mate@test" {
		t.Fatalf("expected recipient, got %q", got.To.Email)
	}
	if got.Params["project_title"] != "Search Engine" {
		t.Fatalf("expected params forwarded, got %v", got.Params)
	}
}

func TestClientSend_MapsAPIErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, "unauthorized", ErrUnauthorized},
		{"validation", http.StatusUnprocessableEntity, "validation", ErrBadRequest},
		{"rate limited", http.StatusTooManyRequests, "rate_limited", ErrRateLimited},
		{"delivery failed", http.StatusBadGateway, "delivery_failed", ErrDeliveryFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(errorResponse{Error: tc.code, Message: tc.name})
			}))
			defer server.Close()

			client := NewClient(server.URL, "key", "no-reply@studieo.app", server.Client())
			err := client.Send(context.Background(), notification.Message{
				Template: notification.TemplateSubmitted,
				To:       notification.Recipient{Email: "lead@test"},
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClientSend_UnparsableError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "no-reply@studieo.app", server.Client())
	err := client.Send(context.Background(), notification.Message{
		Template: notification.TemplateSubmitted,
		To:       notification.Recipient{Email: "lead@test"},
	})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestClientSend_RequiresBaseURL(t *testing.T) {
	client := NewClient("  ", "key", "no-reply@studieo.app", nil)
	err := client.Send(context.Background(), notification.Message{
		Template: notification.TemplateSubmitted,
		To:       notification.Recipient{Email: "lead@test"},
	})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestClientSend_RejectsEmptyRecipient(t *testing.T) {
	client := NewClient("http://mailer.invalid", "key", "no-reply@studieo.app", nil)
	err := client.Send(context.Background(), notification.Message{Template: notification.TemplateSubmitted})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientRoundTrip(t *testing.T) {
	var gotAuth string
	var gotVote map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/rounds/latest":
			_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":{"id":"r1","status":"open","options":[{"id":"A","text":"Run","votes":2}]}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/rounds/r1/votes":
			_ = json.NewDecoder(r.Body).Decode(&gotVote)
			_, _ = w.Write([]byte(`{"code":0,"message":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":404,"message":"round not found"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok", 0)
	ctx := context.Background()
	r, err := c.LatestRound(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if r.ID != "r1" || len(r.Options) != 1 || r.Options[0].Votes != 2 {
		t.Fatalf("round=%+v", r)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth=%q", gotAuth)
	}
	if err := c.SubmitVote(ctx, "r1", "A"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if gotVote["optionId"] != "A" {
		t.Fatalf("vote body=%v", gotVote)
	}
	_, err = c.GetRound(ctx, "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "round not found" {
		t.Fatalf("err=%v", err)
	}
}

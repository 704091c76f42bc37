package logs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestLokiForwarderPushesStream(t *testing.T) {
	got := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		got <- payload
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	f := NewLoki(server.URL, "bench")
	f.Hook(map[string]any{"msg": "shutdown requested"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case payload := <-got:
		streams := payload["streams"].([]any)
		stream := streams[0].(map[string]any)["stream"].(map[string]any)
		if stream["app"] != "controller" || stream["device"] != "bench" {
			t.Fatalf("unexpected labels: %v", stream)
		}
	default:
		t.Fatalf("expected loki push")
	}
}

func TestElasticForwarderPostsEntry(t *testing.T) {
	got := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- string(body)
	}))
	defer server.Close()

	f := NewElastic(server.URL)
	f.Hook(map[string]any{"msg": "httpd stopped"})
	if err := f.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if body := <-got; body != `{"msg":"httpd stopped"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestForwarderCountsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := NewElastic(server.URL)
	f.Hook(map[string]any{"msg": "x"})
	_ = f.Close(context.Background())
	if _, failed := f.Stats(); failed != 1 {
		t.Fatalf("expected 1 failed post, got %d", failed)
	}
}

func TestForwarderHookAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	f := NewElastic(server.URL)
	if err := f.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	f.Hook(map[string]any{"msg": "late entry"})
	if err := f.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if dropped, _ := f.Stats(); dropped != 1 {
		t.Fatalf("expected late entry to be dropped, got %d", dropped)
	}
}

func TestForwarderHookRacesClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	f := NewElastic(server.URL)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				f.Hook(map[string]any{"msg": "request"})
			}
		}()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	wg.Wait()
}

func TestEmptyURLDisablesForwarder(t *testing.T) {
	if NewLoki("", "bench") != nil || NewElastic("") != nil {
		t.Fatalf("expected nil forwarder for empty url")
	}
}

func TestLokiPayloadTimestamp(t *testing.T) {
	at := time.Unix(1700000000, 5)
	payload := lokiPayload(map[string]string{"app": "controller"}, at, map[string]any{"msg": "x"})
	values := payload["streams"].([]any)[0].(map[string]any)["values"].([][]string)
	if values[0][0] != "1700000000000000005" {
		t.Fatalf("expected unix nano timestamp, got %s", values[0][0])
	}
}

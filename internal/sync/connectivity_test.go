package sync

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestMonitorDetectsTransitions(t *testing.T) {
	healthy := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var transitions []bool
	m := NewMonitor(srv.URL, &http.Client{Timeout: time.Second}, time.Hour, func(online bool) {
		transitions = append(transitions, online)
	})

	if m.CheckNow() {
		t.Fatal("probe against a 502 endpoint reported online")
	}
	if m.Online() {
		t.Fatal("monitor should still be offline")
	}

	healthy.Store(true)
	if !m.CheckNow() {
		t.Fatal("probe against a healthy endpoint reported offline")
	}
	// An unchanged state must not re-fire the callback.
	m.CheckNow()

	healthy.Store(false)
	m.CheckNow()

	want := []bool{true, false}
	if len(transitions) != len(want) {
		t.Fatalf("got %d transitions (%v), want %d", len(transitions), transitions, len(want))
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestMonitorUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	m := NewMonitor(url, &http.Client{Timeout: time.Second}, time.Hour, nil)
	if m.CheckNow() {
		t.Error("probe against a closed server reported online")
	}
}

func TestMonitorTreatsClientErrorsAsOnline(t *testing.T) {
	// A 404 still proves the server is reachable.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, &http.Client{Timeout: time.Second}, time.Hour, nil)
	if !m.CheckNow() {
		t.Error("reachable server returning 404 reported offline")
	}
}

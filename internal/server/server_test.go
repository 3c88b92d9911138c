package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/minibank/minibank/internal/audit"
	"github.com/minibank/minibank/internal/config"
	"github.com/minibank/minibank/internal/ledger"
	"github.com/minibank/minibank/internal/logging"
	"github.com/minibank/minibank/internal/middleware"
)

type testServer struct {
	app     *fiber.App
	ledger  *ledger.Ledger
	journal *audit.Journal
}

func newTestServer(t *testing.T, cache *redis.Client) testServer {
	t.Helper()
	cfg := config.Config{AppName: "MiniBankTest", AppEnv: "test", Port: "0", IdempotencyTTL: time.Minute}
	journal := audit.NewJournal(logging.Discard(), 0)
	led := ledger.New(ledger.WithRecorder(journal))
	srv, err := New(cfg, led, journal, nil, cache, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return testServer{app: srv.App(), ledger: led, journal: journal}
}

func (s testServer) do(t *testing.T, method, path, body string, headers ...string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, payload
}

func decode[T any](t *testing.T, payload []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode %s: %v", string(payload), err)
	}
	return out
}

type summary struct {
	ID      int    `json:"id"`
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
}

type historyBody struct {
	Kind string `json:"kind"`
	Note string `json:"note"`
}

type accountBody struct {
	Kind    string        `json:"kind"`
	History []historyBody `json:"history"`
}

func TestTransferAndUndoOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, http.MethodPost, "/api/v1/accounts", `{"owner":"Alice","initial_balance":"100"}`)
	if status != http.StatusCreated {
		t.Fatalf("create alice: %d %s", status, body)
	}
	if got := decode[map[string]int](t, body)["id"]; got != 1 {
		t.Fatalf("expected id 1, got %d", got)
	}
	status, _ = s.do(t, http.MethodPost, "/api/v1/accounts", `{"owner":"Bob"}`)
	if status != http.StatusCreated {
		t.Fatalf("create bob: %d", status)
	}

	status, body = s.do(t, http.MethodPost, "/api/v1/transfers", `{"from":1,"to":2,"amount":40}`)
	if status != http.StatusCreated {
		t.Fatalf("transfer: %d %s", status, body)
	}
	res := decode[map[string]any](t, body)
	if res["from_balance"] != "60" || res["to_balance"] != "40" {
		t.Fatalf("unexpected balances: %v", res)
	}

	status, body = s.do(t, http.MethodPost, "/api/v1/undo", "")
	if status != http.StatusOK {
		t.Fatalf("undo: %d %s", status, body)
	}
	if undo := decode[map[string]any](t, body); undo["transfer"] != true {
		t.Fatalf("expected transfer undo, got %v", undo)
	}

	status, body = s.do(t, http.MethodGet, "/api/v1/accounts", "")
	if status != http.StatusOK {
		t.Fatalf("list: %d", status)
	}
	list := decode[[]summary](t, body)
	if len(list) != 2 || list[0].Balance != "100" || list[1].Balance != "0" {
		t.Fatalf("unexpected list after undo: %+v", list)
	}

	status, body = s.do(t, http.MethodGet, "/api/v1/journal", "")
	if status != http.StatusOK {
		t.Fatalf("journal: %d", status)
	}
	if journal := decode[[]map[string]any](t, body); len(journal) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(journal))
	}

	status, body = s.do(t, http.MethodGet, "/api/v1/audit/verify", "")
	if status != http.StatusOK {
		t.Fatalf("audit verify: %d", status)
	}
	verify := decode[map[string]any](t, body)
	if verify["valid"] != true || verify["entries"] != float64(5) {
		t.Fatalf("unexpected audit verify: %v", verify)
	}
}

func TestGetAccountIncludesHistory(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/v1/accounts", `{"owner":"Alice","initial_balance":"10.50"}`)

	status, body := s.do(t, http.MethodPost, "/api/v1/accounts/1/deposit", `{"amount":"2.25"}`)
	if status != http.StatusOK {
		t.Fatalf("deposit: %d %s", status, body)
	}
	if got := decode[summary](t, body).Balance; got != "12.75" {
		t.Fatalf("expected 12.75, got %s", got)
	}

	status, body = s.do(t, http.MethodGet, "/api/v1/accounts/1", "")
	if status != http.StatusOK {
		t.Fatalf("get: %d", status)
	}
	acc := decode[accountBody](t, body)
	if acc.Kind != "checking" || len(acc.History) != 2 {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if acc.History[0].Note != "initial" || acc.History[1].Note != "manual" {
		t.Fatalf("unexpected notes: %+v", acc.History)
	}
}

func TestLedgerErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/v1/accounts", `{"owner":"Alice","initial_balance":50}`)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"undo initial deposit", http.MethodPost, "/api/v1/undo", "", http.StatusOK},
		{"nothing to undo", http.MethodPost, "/api/v1/undo", "", http.StatusConflict},
		{"insufficient funds", http.MethodPost, "/api/v1/accounts/1/withdraw", `{"amount":80}`, http.StatusConflict},
		{"invalid amount", http.MethodPost, "/api/v1/accounts/1/deposit", `{"amount":0}`, http.StatusBadRequest},
		{"negative initial", http.MethodPost, "/api/v1/accounts", `{"owner":"Eve","initial_balance":-1}`, http.StatusBadRequest},
		{"missing owner", http.MethodPost, "/api/v1/accounts", `{"initial_balance":1}`, http.StatusBadRequest},
		{"unknown account", http.MethodGet, "/api/v1/accounts/9", "", http.StatusNotFound},
		{"bad account id", http.MethodGet, "/api/v1/accounts/abc", "", http.StatusBadRequest},
		{"same account", http.MethodPost, "/api/v1/transfers", `{"from":1,"to":1,"amount":1}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/transfers", `{"from":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		status, body := s.do(t, tc.method, tc.path, tc.body)
		if status != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.want, status, body)
		}
		if status >= 400 {
			if msg := decode[map[string]any](t, body)["error"]; msg == nil || msg == "" {
				t.Fatalf("%s: expected error message in body", tc.name)
			}
		}
	}

	// undo of the initial deposit emptied the account; failed calls changed nothing
	view, err := s.ledger.Account(1)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !view.Balance.IsZero() || len(view.History) != 2 {
		t.Fatalf("unexpected state: %+v", view)
	}
}

func TestHealthzWithoutBackends(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.do(t, http.MethodGet, "/healthz", "")
	if status != http.StatusOK {
		t.Fatalf("healthz: %d %s", status, body)
	}
	health := decode[map[string]any](t, body)
	backends, _ := health["status"].(map[string]any)
	if backends["postgres"] != "disabled" || backends["redis"] != "disabled" {
		t.Fatalf("unexpected backend status: %v", health)
	}
}

func TestIdempotentDepositAppliesOnce(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	s := newTestServer(t, cache)
	s.do(t, http.MethodPost, "/api/v1/accounts", `{"owner":"Alice"}`)

	for i := 0; i < 3; i++ {
		status, body := s.do(t, http.MethodPost, "/api/v1/accounts/1/deposit", `{"amount":5}`, middleware.IdempotencyKeyHeader, "dep-1")
		if status != http.StatusOK {
			t.Fatalf("deposit %d: %d %s", i, status, body)
		}
	}

	view, _ := s.ledger.Account(1)
	if got := view.Balance.String(); got != "5" {
		t.Fatalf("expected one deposit to apply, balance %s", got)
	}
	if n := len(s.journal.Entries()); n != 1 {
		t.Fatalf("expected 1 audit entry, got %d", n)
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/illomx/market-dashboard/internal/chain"
	"github.com/illomx/market-dashboard/internal/dashboard"
	"github.com/illomx/market-dashboard/internal/listing"
)

const aliceHex = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

type fakeLoader struct {
	loads   atomic.Int32
	err     error
	lastAcc atomic.Value
}

func (f *fakeLoader) Load(ctx context.Context, account common.Address) (*dashboard.Dashboard, error) {
	n := f.loads.Add(1)
	f.lastAcc.Store(account)
	d := &dashboard.Dashboard{
		Account: account,
		State:   dashboard.StateLoaded,
		Created: []listing.Listing{{TokenID: int64(n), Price: "1.0", Sold: true}},
	}
	if f.err != nil {
		d.State = dashboard.StateFailed
		d.Error = f.err.Error()
		return d, f.err
	}
	d.Sold = listing.FilterSold(d.Created)
	return d, nil
}

func (f *fakeLoader) LoadMarket(ctx context.Context) (*dashboard.Market, error) {
	if f.err != nil {
		return &dashboard.Market{State: dashboard.StateFailed}, f.err
	}
	return &dashboard.Market{
		State: dashboard.StateLoaded,
		Items: []listing.Listing{{TokenID: 1}, {TokenID: 2}},
	}, nil
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(ctx context.Context) error {
	return p.err
}

func newTestServer(t *testing.T, loader *fakeLoader, pinger fakePinger) *httptest.Server {
	t.Helper()
	s := New(Config{WatchInterval: 20 * time.Millisecond}, loader, pinger, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{name: "healthy", wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "rpc down", pingErr: errors.New("dial tcp: refused"), wantStatus: http.StatusServiceUnavailable, wantBody: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeLoader{}, fakePinger{err: tt.pingErr})

			resp, err := http.Get(ts.URL + "/health")
			if err != nil {
				t.Fatalf("GET /health: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var body struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("status field = %q, want %q", body.Status, tt.wantBody)
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	t.Run("loads account", func(t *testing.T) {
		loader := &fakeLoader{}
		ts := newTestServer(t, loader, fakePinger{})

		resp, err := http.Get(ts.URL + "/api/dashboard/" + aliceHex)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		var d dashboard.Dashboard
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if d.State != dashboard.StateLoaded || len(d.Created) != 1 || len(d.Sold) != 1 {
			t.Errorf("dashboard = %+v", d)
		}
		if got := loader.lastAcc.Load().(common.Address); got != common.HexToAddress(aliceHex) {
			t.Errorf("loaded account = %s, want %s", got, aliceHex)
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		loader := &fakeLoader{}
		ts := newTestServer(t, loader, fakePinger{})

		resp, err := http.Get(ts.URL + "/api/dashboard/not-an-address")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		if loader.loads.Load() != 0 {
			t.Error("loader called for an invalid address")
		}
	})

	t.Run("zero address", func(t *testing.T) {
		ts := newTestServer(t, &fakeLoader{}, fakePinger{})

		resp, err := http.Get(ts.URL + "/api/dashboard/0x0000000000000000000000000000000000000000")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("chain failure", func(t *testing.T) {
		ts := newTestServer(t, &fakeLoader{err: chain.ErrChainIDMismatch}, fakePinger{})

		resp, err := http.Get(ts.URL + "/api/dashboard/" + aliceHex)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", resp.StatusCode)
		}
		var d dashboard.Dashboard
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if d.State != dashboard.StateFailed {
			t.Errorf("State = %q, want %q", d.State, dashboard.StateFailed)
		}
	})
}

func TestMarket(t *testing.T) {
	ts := newTestServer(t, &fakeLoader{}, fakePinger{})

	resp, err := http.Get(ts.URL + "/api/market")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var m dashboard.Market
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(m.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(m.Items))
	}
}

func TestCORS(t *testing.T) {
	s := New(Config{AllowedOrigins: []string{"https://illomx.example"}}, &fakeLoader{}, fakePinger{}, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("Origin", "https://illomx.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://illomx.example" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "https://illomx.example")
	}
}

func TestStream(t *testing.T) {
	loader := &fakeLoader{}
	ts := newTestServer(t, loader, fakePinger{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/dashboard/" + aliceHex + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first, second streamMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read second: %v", err)
	}

	if first.Type != "dashboard" || first.Dashboard == nil {
		t.Fatalf("first message = %+v", first)
	}
	if first.Dashboard.State != dashboard.StateLoaded {
		t.Errorf("State = %q, want %q", first.Dashboard.State, dashboard.StateLoaded)
	}
	// Each refresh is a fresh load.
	if first.Dashboard.Created[0].TokenID == second.Dashboard.Created[0].TokenID {
		t.Error("second message repeats the first load")
	}
}

func TestStream_RejectsForeignOrigin(t *testing.T) {
	s := New(Config{AllowedOrigins: []string{"https://illomx.example"}}, &fakeLoader{}, fakePinger{}, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/dashboard/" + aliceHex + "/stream"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		t.Fatal("expected dial to fail for a foreign origin")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

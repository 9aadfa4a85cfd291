package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"showcase-tracker/internal/config"
	"showcase-tracker/internal/domain"
	"showcase-tracker/internal/effect"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestSnapshotProviders(t *testing.T) {
	t.Parallel()
	upstream := func(name string) *httptest.Server {
		return serve(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/uid/100000001" {
				http.NotFound(w, r)
				return
			}
			fmt.Fprintf(w, `{"playerInfo":{"nickname":%q}}`, name)
		})
	}
	endpoints := Endpoints{Enka: upstream("enka").URL, MicroGG: upstream("microgg").URL}

	for _, provider := range []string{config.ProviderEnka, config.ProviderMicroGG} {
		c := newClient(provider, endpoints)
		if c.Provider() != provider {
			t.Fatalf("provider=%s", c.Provider())
		}
		body, err := c.Snapshot(context.Background(), "100000001")
		if err != nil {
			t.Fatalf("%s: %v", provider, err)
		}
		if want := fmt.Sprintf(`{"playerInfo":{"nickname":%q}}`, provider); string(body) != want {
			t.Fatalf("%s: body=%s", provider, body)
		}
	}
}

func TestSnapshotErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		status    int
		body      string
		is        error
		notMapped bool
	}{
		{name: "maintenance", status: http.StatusFailedDependency, is: domain.ErrUpstreamUnavailable},
		{name: "server error", status: http.StatusServiceUnavailable, is: domain.ErrUpstreamUnavailable},
		{name: "not json", status: http.StatusOK, body: "<html>", is: domain.ErrMalformedSnapshot},
		{name: "array", status: http.StatusOK, body: "[]", is: domain.ErrMalformedSnapshot},
		{name: "unknown uid", status: http.StatusNotFound, notMapped: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})
			_, err := newClient(config.ProviderEnka, Endpoints{Enka: srv.URL}).Snapshot(context.Background(), "1")
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("expected %v, got %v", tc.is, err)
			}
			var se *StatusError
			if tc.status != http.StatusOK && (!errors.As(err, &se) || se.StatusCode != tc.status) {
				t.Fatalf("expected StatusError %d, got %v", tc.status, err)
			}
			if tc.notMapped && (errors.Is(err, domain.ErrUpstreamUnavailable) || errors.Is(err, domain.ErrTransientNetwork)) {
				t.Fatalf("404 mapped onto taxonomy: %v", err)
			}
		})
	}
}

func TestTimeoutIsTransient(t *testing.T) {
	t.Parallel()
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
		fmt.Fprint(w, `{}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newClient(config.ProviderEnka, Endpoints{Enka: srv.URL}).Snapshot(ctx, "1")
	if !errors.Is(err, domain.ErrTransientNetwork) {
		t.Fatalf("expected ErrTransientNetwork, got %v", err)
	}
}

func TestRateLimitCooldown(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c := newClient(config.ProviderEnka, Endpoints{Enka: srv.URL})

	for i := 0; i < 3; i++ {
		if _, err := c.Snapshot(context.Background(), "1"); !errors.Is(err, domain.ErrTransientNetwork) {
			t.Fatalf("call %d: expected ErrTransientNetwork, got %v", i, err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("hits=%d want 1", n)
	}
	if until := c.CooldownUntil(config.ProviderEnka); time.Until(until) < 30*time.Second {
		t.Fatalf("cooldown until %v", until)
	}
}

func TestMiniGG(t *testing.T) {
	t.Parallel()
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weapons" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("query") {
		case "护摩之杖":
			fmt.Fprint(w, `{"name":"护摩之杖","effect":"生命值提升{0}。攻击力提升{1}","r1":["20%","0.8%"],"r2":["25%","1%"]}`)
		default:
			fmt.Fprint(w, `["护摩之杖","和璞鸢"]`)
		}
	})
	m := newClient(config.ProviderEnka, Endpoints{MiniGG: srv.URL}).MiniGG()

	got, err := m.WeaponEffect(context.Background(), effect.Query{Name: "护摩之杖", Refinement: 2})
	if err != nil {
		t.Fatalf("effect: %v", err)
	}
	if got != "生命值提升25%。攻击力提升1%" {
		t.Fatalf("effect=%q", got)
	}

	_, err = m.WeaponEffect(context.Background(), effect.Query{Name: "护摩", Refinement: 1})
	if !errors.Is(err, effect.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAmbr(t *testing.T) {
	t.Parallel()
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/chs/weapon/13501" {
			fmt.Fprint(w, `{"response":404,"data":"Not Found"}`)
			return
		}
		fmt.Fprint(w, `{"response":200,"data":{"affix":{"113501":{"name":"无羁的朱赤之蝶","upgrade":{"0":"生命值提升<color=#99FFFFFF>20%</color>。","1":"生命值提升<color=#99FFFFFF>25%</color>。"}}}}}`)
	})
	a := newClient(config.ProviderEnka, Endpoints{Ambr: srv.URL}).Ambr()

	got, err := a.WeaponEffect(context.Background(), effect.Query{ItemID: 13501, Refinement: 2})
	if err != nil {
		t.Fatalf("effect: %v", err)
	}
	if got != "生命值提升25%。" {
		t.Fatalf("effect=%q", got)
	}
	if _, err := a.WeaponEffect(context.Background(), effect.Query{ItemID: 1, Refinement: 1}); !errors.Is(err, effect.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolverFallsBackToAmbr(t *testing.T) {
	t.Parallel()
	minigg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	ambr := serve(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"affix":{"1":{"upgrade":{"0":"效果"}}}}}`)
	})
	c := newClient(config.ProviderEnka, Endpoints{MiniGG: minigg.URL, Ambr: ambr.URL})
	r := effect.NewResolver(zerolog.Nop(), c.MiniGG(), c.Ambr())

	if got := r.Resolve(context.Background(), effect.Query{ItemID: 13501, Name: "护摩之杖", Refinement: 1}); got != "效果" {
		t.Fatalf("effect=%q", got)
	}
}

func TestRankCalculations(t *testing.T) {
	t.Parallel()
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/getCalculationsForUser/100000001" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"data":[{"characterId":10000046,"calculations":{"fit":{"ranking":12}}},{"name":"no id"},{"characterId":"10000002"}]}`)
	})
	c := newClient(config.ProviderEnka, Endpoints{Akasha: srv.URL})

	got, err := c.RankCalculations(context.Background(), "100000001")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	want := []RankCalculation{
		{CharacterID: "10000046", Calculations: []byte(`{"fit":{"ranking":12}}`)},
		{CharacterID: "10000002", Calculations: []byte(`null`)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rank (-want +got):\n%s", diff)
	}

	if _, err := c.RankCalculations(context.Background(), "2"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

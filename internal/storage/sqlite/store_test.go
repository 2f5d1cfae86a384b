package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AppendList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := []*domain.AuditRecord{
		{RocketID: "r1", Kind: domain.EventPayStarting, Driver: "wechat", Gateway: "pos.cancel"},
		{RocketID: "r1", Kind: domain.EventPayStarted, Driver: "wechat", Gateway: "pos.cancel", Endpoint: "https://api.mch.weixin.qq.com/v3/x", Data: json.RawMessage(`{"appid":"wx1"}`)},
		{RocketID: "r2", Kind: domain.EventPayStarting, Driver: "alipay", Gateway: "trade.query"},
	}
	for _, r := range records {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if r.ID == "" || r.CreatedAt.IsZero() {
			t.Errorf("expected ID and timestamp to be assigned: %+v", r)
		}
	}

	tests := []struct {
		name      string
		opts      ports.AuditListOptions
		wantKinds []domain.EventKind
	}{
		{name: "all", opts: ports.AuditListOptions{}, wantKinds: []domain.EventKind{domain.EventPayStarting, domain.EventPayStarted, domain.EventPayStarting}},
		{name: "by rocket", opts: ports.AuditListOptions{RocketID: "r1"}, wantKinds: []domain.EventKind{domain.EventPayStarting, domain.EventPayStarted}},
		{name: "by driver and kind", opts: ports.AuditListOptions{Driver: "alipay", Kind: domain.EventPayStarting}, wantKinds: []domain.EventKind{domain.EventPayStarting}},
		{name: "limit", opts: ports.AuditListOptions{Limit: 1}, wantKinds: []domain.EventKind{domain.EventPayStarting}},
		{name: "no match", opts: ports.AuditListOptions{Driver: "paypal"}, wantKinds: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.wantKinds) {
				t.Fatalf("List() returned %d records, want %d", len(got), len(tt.wantKinds))
			}
			for i, k := range tt.wantKinds {
				if got[i].Kind != k {
					t.Errorf("record %d kind = %s, want %s", i, got[i].Kind, k)
				}
			}
		})
	}

	got, _ := store.List(ctx, ports.AuditListOptions{Kind: domain.EventPayStarted})
	if string(got[0].Data) != `{"appid":"wx1"}` || got[0].Endpoint == "" {
		t.Errorf("unexpected round trip: %+v", got[0])
	}
	if !got[0].CreatedAt.Equal(records[1].CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, records[1].CreatedAt)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.Append(context.Background(), &domain.AuditRecord{RocketID: "r1", Kind: domain.EventMethodCalled, Driver: "wechat"}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.List(context.Background(), ports.AuditListOptions{RocketID: "r1"})
	if err != nil || len(got) != 1 {
		t.Fatalf("List() = %v, %v", got, err)
	}
}

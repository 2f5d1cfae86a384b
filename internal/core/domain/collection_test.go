package domain

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestCollection_Get(t *testing.T) {
	c := Collection{
		"out_trade_no": "T123",
		"amount":       map[string]any{"total": 100, "currency": "CNY"},
		"payer":        Collection{"openid": "o1"},
		"literal.key":  "dotted",
	}

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{path: "out_trade_no", want: "T123", wantOK: true},
		{path: "amount.currency", want: "CNY", wantOK: true},
		{path: "payer.openid", want: "o1", wantOK: true},
		{path: "literal.key", want: "dotted", wantOK: true},
		{path: "amount.missing", wantOK: false},
		{path: "out_trade_no.deeper", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := c.Get(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Get(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Get(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	var nilColl Collection
	if _, ok := nilColl.Get("x"); ok {
		t.Error("nil collection should resolve nothing")
	}
}

func TestCollection_String(t *testing.T) {
	c := Collection{
		"int":    float64(100),
		"frac":   1.5,
		"number": json.Number("42"),
		"nil":    nil,
		"bool":   true,
	}

	tests := map[string]string{
		"int":     "100",
		"frac":    "1.5",
		"number":  "42",
		"nil":     "",
		"bool":    "true",
		"missing": "",
	}
	for path, want := range tests {
		if got := c.String(path); got != want {
			t.Errorf("String(%q) = %q, want %q", path, got, want)
		}
	}

	if c.Has("nil") || !c.Has("int") {
		t.Error("Has() disagrees with String()")
	}
}

func TestCollection_MergeRecursive(t *testing.T) {
	c := Collection{
		"mchid":  "mch1",
		"amount": map[string]any{"currency": "CNY"},
	}
	c.MergeRecursive(map[string]any{
		"amount": map[string]any{"total": 100},
		"appid":  "wx1",
	})

	if c.String("amount.currency") != "CNY" || c.String("amount.total") != "100" {
		t.Errorf("nested maps not merged: %v", c["amount"])
	}
	if c.String("mchid") != "mch1" || c.String("appid") != "wx1" {
		t.Errorf("top-level keys lost: %v", c)
	}

	c.Merge(map[string]any{"amount": "flat"})
	if c.String("amount") != "flat" {
		t.Error("Merge should replace nested values")
	}
}

func TestCollection_ExceptAndToJSON(t *testing.T) {
	c := Collection{"_config": "shop2", "out_trade_no": "T1"}

	trimmed := c.Except("_config")
	if _, ok := trimmed["_config"]; ok {
		t.Error("Except kept the excluded key")
	}
	if _, ok := c["_config"]; !ok {
		t.Error("Except modified the receiver")
	}
	if got := trimmed.ToJSON(); got != `{"out_trade_no":"T1"}` {
		t.Errorf("ToJSON() = %s", got)
	}
	if got := (Collection{}).ToJSON(); got != "{}" {
		t.Errorf("empty ToJSON() = %s", got)
	}
}

func TestRocket_Lifecycle(t *testing.T) {
	r := NewRocket("wechat", "pos.cancel")
	if r.ID == "" || r.Direction() != DirectionCollection {
		t.Fatalf("unexpected new rocket %+v", r)
	}
	if r.Endpoint() != "" || r.Destination() != nil {
		t.Error("new rocket should have no destination")
	}

	r.SetParams(map[string]any{"out_trade_no": "T123"}).
		MergePayload(map[string]any{"appid": "wx1"}).
		MergePayload(map[string]any{"mchid": "mch1"}).
		SetDestination(http.MethodPost, "https://api.example.com/reverse").
		SetDirection(DirectionNoRequest)

	if r.Params().String("out_trade_no") != "T123" {
		t.Error("params lost")
	}
	if len(r.Payload()) != 2 {
		t.Errorf("MergePayload should keep both fields, got %v", r.Payload())
	}
	if r.Endpoint() != "https://api.example.com/reverse" || r.Destination().Method != http.MethodPost {
		t.Errorf("destination = %+v", r.Destination())
	}
	if r.Direction().RequiresRequest() {
		t.Error("no_request should not require a request")
	}

	r.SetPayload(map[string]any{"only": "this"})
	if len(r.Payload()) != 1 {
		t.Errorf("SetPayload should replace, got %v", r.Payload())
	}
}

func TestDirection_RequiresRequest(t *testing.T) {
	tests := map[Direction]bool{
		DirectionCollection: true,
		DirectionArray:      true,
		DirectionOrigin:     true,
		DirectionNoRequest:  false,
		DirectionResponse:   false,
	}
	for d, want := range tests {
		if got := d.RequiresRequest(); got != want {
			t.Errorf("%s.RequiresRequest() = %v, want %v", d, got, want)
		}
	}
}

func TestCollection_DeepClone(t *testing.T) {
	orig := Collection{
		"amount": map[string]any{"total": 100},
		"payer":  Collection{"openid": "o1"},
		"goods":  []any{map[string]any{"id": "g1"}},
		"tags":   []string{"a"},
	}

	cp := orig.DeepClone()
	cp["amount"].(map[string]any)["total"] = 0
	cp["payer"].(Collection)["openid"] = "forged"
	cp["goods"].([]any)[0].(map[string]any)["id"] = "g2"
	cp["tags"].([]string)[0] = "b"

	if orig.String("amount.total") != "100" {
		t.Error("nested map shared with clone")
	}
	if orig.String("payer.openid") != "o1" {
		t.Error("nested collection shared with clone")
	}
	if orig["goods"].([]any)[0].(map[string]any)["id"] != "g1" {
		t.Error("slice elements shared with clone")
	}
	if orig["tags"].([]string)[0] != "a" {
		t.Error("string slice shared with clone")
	}

	var empty Collection
	if got := empty.DeepClone(); got == nil || len(got) != 0 {
		t.Errorf("DeepClone(nil) = %v", got)
	}
}

func TestResponse_Clone(t *testing.T) {
	orig := &Response{StatusCode: 200, Header: http.Header{"X-A": {"1"}}, Body: []byte("ok")}

	cp := orig.Clone()
	cp.Body[0] = 'x'
	cp.Header.Set("X-A", "2")

	if string(orig.Body) != "ok" || orig.Header.Get("X-A") != "1" {
		t.Errorf("clone shares memory with original: %+v", orig)
	}
	if (*Response)(nil).Clone() != nil {
		t.Error("nil response should clone to nil")
	}
}

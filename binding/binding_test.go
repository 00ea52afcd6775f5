package binding

import (
	"encoding/json"
	"testing"
)

func TestInterpolate(t *testing.T) {
	var data any
	if err := json.Unmarshal([]byte(`{
		"user": {"name": "Ada", "roles": ["admin", "dev"]},
		"total": 42,
		"ratio": 0.5
	}`), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	cases := map[string]string{
		"Hello, ${user.name}!":    "Hello, Ada!",
		"${ user.roles[1] }":      "dev",
		"${total} items":          "42 items",
		"${ratio}":                "0.5",
		"${user.missing}":         "${user.missing}",
		"${user.roles[9]}":        "${user.roles[9]}",
		"${user.roles[x]}":        "${user.roles[x]}",
		"no placeholders":         "no placeholders",
		"${user.name} & ${total}": "Ada & 42",
	}
	for in, want := range cases {
		if got := Interpolate(in, data); got != want {
			t.Fatalf("Interpolate(%q) = %q, want %q", in, got, want)
		}
	}

	if got := Interpolate("${user.name}", nil); got != "${user.name}" {
		t.Fatalf("nil data should keep placeholder, got %q", got)
	}
}

func TestResolveReflectFallback(t *testing.T) {
	type customer struct {
		Name   string
		Emails []string
	}
	data := map[string]customer{
		"buyer": {Name: "Lin", Emails: []string{"a@x", "b@x"}},
	}

	if v, ok := Resolve(data, "buyer.name"); !ok || v != "Lin" {
		t.Fatalf("struct field lookup failed: %v %v", v, ok)
	}
	if v, ok := Resolve(&data, "buyer.emails[1]"); !ok || v != "b@x" {
		t.Fatalf("typed slice lookup failed: %v %v", v, ok)
	}
	if _, ok := Resolve(data, "seller.name"); ok {
		t.Fatalf("missing key should not resolve")
	}
	if _, ok := Resolve(map[int]string{1: "x"}, "1"); ok {
		t.Fatalf("non-string map keys should not resolve")
	}
}

func TestValuesWalksNestedData(t *testing.T) {
	data := map[string]any{"c": "blue"}
	in := map[string]any{
		"color": "${c}",
		"list":  []any{"${c}", 3},
	}
	out := Values(in, data).(map[string]any)
	if out["color"] != "blue" {
		t.Fatalf("unexpected color: %v", out["color"])
	}
	list := out["list"].([]any)
	if list[0] != "blue" || list[1] != 3 {
		t.Fatalf("unexpected list: %v", list)
	}
	if in["color"] != "${c}" {
		t.Fatalf("input must not be modified")
	}
}

package slots

import (
	"errors"
	"testing"
)

func TestParseKey_RoundTrip(t *testing.T) {
	raw := "Mutation.createTodo.postAuth.2.req.vtl"
	key, err := ParseKey(raw)
	if err != nil {
		t.Fatalf("ParseKey(%q): %v", raw, err)
	}
	if key.TypeName != "Mutation" || key.FieldName != "createTodo" {
		t.Fatalf("unexpected type/field: %#v", key)
	}
	if key.SlotName != "postAuth" || key.SlotIndex != 2 {
		t.Fatalf("unexpected slot: %#v", key)
	}
	if key.TemplateType != TemplateRequest {
		t.Fatalf("template type = %q, want req.vtl", key.TemplateType)
	}
	if key.String() != raw {
		t.Fatalf("round trip = %q, want %q", key.String(), raw)
	}
}

func TestParseKey_Malformed(t *testing.T) {
	cases := []string{
		"Query.getTodo.req.vtl",                  // unit resolver, four parts
		"Query.getTodo.auth.0.req.vtl.extra",     // seven parts
		"Query..auth.0.req.vtl",                  // empty field
		"Query.getTodo.auth.-1.req.vtl",          // negative index
		"Query.getTodo.auth.first.req.vtl",       // non-numeric index
		"Query.getTodo.auth.0.request.vtl",       // bad template type
		"Query.getTodo.auth.0.req.json",          // bad extension
		"a/b.getTodo.auth.0.req.vtl",             // path separator
		`Query.get\Todo.auth.0.req.vtl`,          // backslash separator
		"",                                       // empty key
	}
	for _, raw := range cases {
		_, err := ParseKey(raw)
		if err == nil {
			t.Fatalf("ParseKey(%q) succeeded, want error", raw)
		}
		var malformed *MalformedSlotKeyError
		if !errors.As(err, &malformed) {
			t.Fatalf("ParseKey(%q) error type = %T", raw, err)
		}
		if malformed.Key != raw {
			t.Fatalf("error key = %q, want %q", malformed.Key, raw)
		}
	}
}

func TestIsGeneratedSlotKey(t *testing.T) {
	if !IsGeneratedSlotKey("Query.getTodo.postDataLoad.0.res.vtl") {
		t.Fatal("six-part key not recognized")
	}
	if IsGeneratedSlotKey("Query.getTodo.req.vtl") {
		t.Fatal("four-part unit resolver key misclassified as slot key")
	}
}

func TestParseUserSlots(t *testing.T) {
	us, err := ParseUserSlots(map[string]string{
		"Mutation.createTodo.preAuth.0.req.vtl": "#set($a = 1)",
		"Query.getTodo.postDataLoad.1.res.vtl":  "#set($b = 2)",
	})
	if err != nil {
		t.Fatalf("ParseUserSlots: %v", err)
	}
	if us.Len() != 2 {
		t.Fatalf("len = %d, want 2", us.Len())
	}
	// Order is sorted key order, independent of map iteration.
	if us.Order[0].String() != "Mutation.createTodo.preAuth.0.req.vtl" {
		t.Fatalf("order[0] = %q", us.Order[0].String())
	}
	slot, ok := us.Lookup("Query.getTodo.postDataLoad.1.res.vtl")
	if !ok || slot.Code != "#set($b = 2)" {
		t.Fatalf("lookup failed: %#v ok=%v", slot, ok)
	}
	if _, ok := us.Lookup("Query.getTodo.postDataLoad.2.res.vtl"); ok {
		t.Fatal("lookup of absent key succeeded")
	}
}

func TestParseUserSlots_FailsFast(t *testing.T) {
	us, err := ParseUserSlots(map[string]string{
		"Mutation.createTodo.preAuth.0.req.vtl": "ok",
		"not-a-slot-key":                        "bad",
	})
	if err == nil {
		t.Fatal("malformed key accepted")
	}
	if us != nil {
		t.Fatal("partial result returned alongside error")
	}
}

func TestParseUserSlots_DuplicateCanonicalKey(t *testing.T) {
	// "00" and "0" parse to the same canonical index.
	_, err := ParseUserSlots(map[string]string{
		"Query.getTodo.auth.0.req.vtl":  "a",
		"Query.getTodo.auth.00.req.vtl": "b",
	})
	var malformed *MalformedSlotKeyError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedSlotKeyError, got %v", err)
	}
	if malformed.Reason != "duplicate slot key" {
		t.Fatalf("reason = %q", malformed.Reason)
	}
}

func TestKnownSlotNames(t *testing.T) {
	for _, name := range KnownSlotNames {
		if !IsKnownSlotName(name) {
			t.Fatalf("%q not recognized", name)
		}
	}
	if IsKnownSlotName("afterwards") {
		t.Fatal("unknown name recognized")
	}
}

func TestUserSlots_NilSafe(t *testing.T) {
	var us *UserSlots
	if us.Len() != 0 {
		t.Fatal("nil Len != 0")
	}
	if _, ok := us.Lookup("Query.getTodo.auth.0.req.vtl"); ok {
		t.Fatal("nil Lookup succeeded")
	}
}

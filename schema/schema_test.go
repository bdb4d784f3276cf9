package schema_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/jacentio/quarry/schema"
)

func TestRegistry(t *testing.T) {
	reg := schema.NewRegistry()
	users := &schema.Collection{
		Name:   "users",
		Fields: []schema.Field{{Name: "email", Kind: schema.String}},
	}
	reg.Register(users)

	if got := reg.Lookup("users"); got != users {
		t.Errorf("Lookup returned %v, want the registered descriptor", got)
	}
	if got := reg.Lookup("missing"); got != nil {
		t.Errorf("Lookup of unregistered name = %v, want nil", got)
	}
	if n := len(reg.Collections()); n != 1 {
		t.Errorf("Collections() has %d entries, want 1", n)
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	reg := schema.NewRegistry()
	reg.Register(&schema.Collection{Name: "users"})
	reg.Register(&schema.Collection{Name: "users"})
}

func TestNilRegistryLookup(t *testing.T) {
	var reg *schema.Registry
	if got := reg.Lookup("users"); got != nil {
		t.Errorf("nil registry lookup = %v, want nil", got)
	}
}

func TestCollectionDefaults(t *testing.T) {
	c := &schema.Collection{Name: "users"}

	if got := c.Key(); got != "_key" {
		t.Errorf("Key() = %q, want _key", got)
	}
	if got := c.Rev(); got != "_rev" {
		t.Errorf("Rev() = %q, want _rev", got)
	}
	if _, ok := c.Field("_key"); !ok {
		t.Error("identity field must resolve by name")
	}
	if _, ok := c.Field("_rev"); !ok {
		t.Error("revision field must resolve by name")
	}
	if _, ok := c.Field("anything"); ok {
		t.Error("undeclared field resolved on a typed collection")
	}
}

func TestCollectionConcurrentLazyInit(t *testing.T) {
	// A hand-built descriptor that never went through a registry initializes
	// on first use, which may happen from concurrent readers.
	c := &schema.Collection{
		Name:   "users",
		Fields: []schema.Field{{Name: "email", Kind: schema.String}},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := c.Field("email"); !ok {
				t.Error("declared field did not resolve")
			}
			if got := c.Key(); got != "_key" {
				t.Errorf("Key() = %q, want _key", got)
			}
			if got := c.Rev(); got != "_rev" {
				t.Errorf("Rev() = %q, want _rev", got)
			}
		}()
	}
	wg.Wait()
}

func TestCollectionNoRevision(t *testing.T) {
	c := &schema.Collection{Name: "logs", RevField: schema.NoRevision}
	if got := c.Rev(); got != "" {
		t.Errorf("Rev() = %q, want empty for a revision-less collection", got)
	}
	if got := c.Populated(); len(got) != 0 {
		t.Errorf("Populated() = %v, want none", got)
	}
}

func TestPopulatedIncludesRevision(t *testing.T) {
	c := &schema.Collection{
		Name:               "users",
		PopulateAfterWrite: []string{"updated_at", "_rev"},
	}
	if got := c.Populated(); !reflect.DeepEqual(got, []string{"_rev", "updated_at"}) {
		t.Errorf("Populated() = %v, want [_rev updated_at]", got)
	}
}

func TestConstraintFor(t *testing.T) {
	c := &schema.Collection{
		Name: "users",
		Constraints: []schema.Constraint{
			{Name: "users_email_unique", Kind: "unique", Fields: []string{"email"}},
			{Name: "users_pkey", Kind: "unique", Fields: []string{"_key"}},
		},
	}

	if got := c.ConstraintFor("email"); got == nil || got.Name != "users_email_unique" {
		t.Errorf("ConstraintFor(email) = %v", got)
	}
	if got := c.ConstraintFor("_key"); got == nil || got.Name != "users_pkey" {
		t.Errorf("ConstraintFor(_key) = %v", got)
	}
	if got := c.ConstraintFor("nickname"); got != nil {
		t.Errorf("ConstraintFor(nickname) = %v, want nil", got)
	}
	if got := c.ConstraintFor(); got != nil {
		t.Errorf("ConstraintFor() = %v, want nil for an empty field set", got)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		coll *schema.Collection
		in   any
		want any
		err  bool
	}{
		{name: "string key passes through", coll: &schema.Collection{Name: "a"}, in: "u1", want: "u1"},
		{name: "int form of string key", coll: &schema.Collection{Name: "b"}, in: 42, want: "42"},
		{name: "string form of int key", coll: &schema.Collection{Name: "c", KeyKind: schema.Int}, in: "42", want: int64(42)},
		{name: "native int key", coll: &schema.Collection{Name: "d", KeyKind: schema.Int}, in: 42, want: int64(42)},
		{name: "integral float decodes to int key", coll: &schema.Collection{Name: "e", KeyKind: schema.Int}, in: float64(42), want: int64(42)},
		{name: "garbled int key", coll: &schema.Collection{Name: "f", KeyKind: schema.Int}, in: "fortytwo", err: true},
		{name: "nil key", coll: &schema.Collection{Name: "g"}, in: nil, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schema.NormalizeKey(tt.coll, tt.in)
			if tt.err {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeKey: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeKey = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestNormalizeValueIntegerWidths(t *testing.T) {
	// Every integer width a caller may hold converts the same way across kinds.
	for _, v := range []any{int(7), int32(7), int64(7)} {
		if got, err := schema.NormalizeValue(schema.String, "id", v); err != nil || got != "7" {
			t.Errorf("String from %T = %v, %v", v, got, err)
		}
		if got, err := schema.NormalizeValue(schema.Int, "age", v); err != nil || got != int64(7) {
			t.Errorf("Int from %T = %v, %v", v, got, err)
		}
		if got, err := schema.NormalizeValue(schema.Float, "score", v); err != nil || got != float64(7) {
			t.Errorf("Float from %T = %v, %v", v, got, err)
		}
	}
}

func TestNormalizeValueBoolAndFloat(t *testing.T) {
	if v, err := schema.NormalizeValue(schema.Bool, "ok", "true"); err != nil || v != true {
		t.Errorf("bool from string = %v, %v", v, err)
	}
	if v, err := schema.NormalizeValue(schema.Float, "score", "1.5"); err != nil || v != 1.5 {
		t.Errorf("float from string = %v, %v", v, err)
	}
	if _, err := schema.NormalizeValue(schema.Int, "age", true); err == nil {
		t.Error("bool as int must fail")
	}
}

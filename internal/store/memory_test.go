package store

import (
	"context"
	"testing"
)

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	got, err := kv.Load(ctx, "k")
	if err != nil || got != nil {
		t.Fatalf("load missing = %q, %v; want nil, nil", got, err)
	}

	value := []byte(`{"a":1}`)
	if err := kv.Save(ctx, "k", value); err != nil {
		t.Fatalf("save: %v", err)
	}
	value[0] = 'X'

	got, err = kv.Load(ctx, "k")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("load = %q, want stored copy", got)
	}

	got[0] = 'Y'
	again, _ := kv.Load(ctx, "k")
	if string(again) != `{"a":1}` {
		t.Errorf("load after caller mutation = %q", again)
	}
}

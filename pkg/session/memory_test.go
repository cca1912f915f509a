package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	data := []byte(`{"id":"a"}`)
	if err := store.Save(ctx, "a", data, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	data[0] = 'X'

	got, err := store.Load(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"id":"a"}` {
		t.Errorf("Load() = %q, saved bytes were not copied", got)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(ctx, "a"); got != nil {
		t.Errorf("Load() after Delete = %q, want nil", got)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) = %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	_ = store.Save(ctx, "a", []byte("x"), base.Add(time.Minute))
	_ = store.Save(ctx, "b", []byte("y"), base)

	if got, _ := store.Load(ctx, "b"); got != nil {
		t.Error("record expiring now should not load")
	}
	if got, _ := store.Load(ctx, "a"); got == nil {
		t.Error("live record should load")
	}

	_ = store.Touch(ctx, "a", base)
	if got, _ := store.Load(ctx, "a"); got != nil {
		t.Error("touched-to-now record should not load")
	}

	store.sweep()
	if store.Len() != 0 {
		t.Errorf("Len() after sweep = %d, want 0", store.Len())
	}
}

func TestMemoryStoreSaveAll(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	err := store.SaveAll(ctx, map[string]Data{
		"a": {Data: []byte("1"), ExpiresAt: exp},
		"b": {Data: []byte("2"), ExpiresAt: exp},
	})
	if err != nil {
		t.Fatal(err)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore(WithCleanupInterval(time.Millisecond))
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	ctx := context.Background()
	if err := store.Save(ctx, "a", nil, time.Now()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Save() = %v, want ErrStoreClosed", err)
	}
	if _, err := store.Load(ctx, "a"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Load() = %v, want ErrStoreClosed", err)
	}
}

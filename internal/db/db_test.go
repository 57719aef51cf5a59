package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	var count int
	if err := d.QueryRow("SELECT COUNT(*) FROM kv_state").Scan(&count); err != nil {
		t.Errorf("kv_state: %v", err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestKeyValue(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	if _, ok, err := d.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get missing = %v %v", ok, err)
	}
	if err := d.Put(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := d.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	v, ok, err := d.Get(ctx, "k")
	if err != nil || !ok || string(v) != "two" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
	if err := d.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := d.Get(ctx, "k"); ok {
		t.Error("key should be gone")
	}
	if err := d.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.Put(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	d.Close()

	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	if v, ok, _ := d.Get(context.Background(), "k"); !ok || string(v) != "v" {
		t.Errorf("value not persisted: %q", v)
	}
	if d.Path() != path {
		t.Errorf("Path = %q", d.Path())
	}
}

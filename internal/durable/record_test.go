package durable

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/fdg312/fittrack/internal/kvstore"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func validJSONArray(data []byte) error {
	var out []any
	return json.Unmarshal(data, &out)
}

func TestWriteFansOutToAllKeys(t *testing.T) {
	store := kvstore.NewMemoryStore()
	rec, err := New(store, testLogger(), nil, "primary", "backup")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := rec.Write(context.Background(), []byte(`[1]`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for _, key := range []string{"primary", "backup"} {
		data, err := store.Get(context.Background(), key)
		if err != nil {
			t.Fatalf("Get %s: %v", key, err)
		}
		if string(data) != `[1]` {
			t.Errorf("key %s = %q, want [1]", key, data)
		}
	}
}

func TestReadPrefersPrimary(t *testing.T) {
	store := kvstore.NewMemoryStore()
	store.Set(context.Background(), "primary", []byte(`[1]`))
	store.Set(context.Background(), "backup", []byte(`[2]`))

	rec, _ := New(store, testLogger(), validJSONArray, "primary", "backup")
	result, err := rec.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if result.Key != "primary" {
		t.Errorf("served key = %s, want primary", result.Key)
	}
	if result.Healed {
		t.Error("unexpected heal on primary read")
	}
}

func TestReadRecoversFromBackupAndHealsPrimary(t *testing.T) {
	store := kvstore.NewMemoryStore()
	store.Set(context.Background(), "primary", []byte(`{not json`))
	store.Set(context.Background(), "backup", []byte(`[2]`))

	rec, _ := New(store, testLogger(), validJSONArray, "primary", "backup")
	result, err := rec.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if result.Key != "backup" {
		t.Errorf("served key = %s, want backup", result.Key)
	}
	if !result.Healed {
		t.Error("expected primary to be healed")
	}

	healed, err := store.Get(context.Background(), "primary")
	if err != nil {
		t.Fatalf("Get primary: %v", err)
	}
	if string(healed) != `[2]` {
		t.Errorf("primary after heal = %q, want [2]", healed)
	}
}

func TestReadMissingEverywhere(t *testing.T) {
	store := kvstore.NewMemoryStore()
	rec, _ := New(store, testLogger(), validJSONArray, "primary", "backup")

	_, err := rec.Read(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReadAllCorrupt(t *testing.T) {
	store := kvstore.NewMemoryStore()
	store.Set(context.Background(), "primary", []byte(`oops`))
	store.Set(context.Background(), "backup", []byte(`also oops`))

	rec, _ := New(store, testLogger(), validJSONArray, "primary", "backup")
	_, err := rec.Read(context.Background())
	if !errors.Is(err, ErrAllCorrupt) {
		t.Errorf("err = %v, want ErrAllCorrupt", err)
	}
}

func TestWritePrimaryKeepsBackupAndStopsFallback(t *testing.T) {
	store := kvstore.NewMemoryStore()
	rec, _ := New(store, testLogger(), validJSONArray, "primary", "backup")
	rec.Write(context.Background(), []byte(`[3]`))

	if err := rec.WritePrimary(context.Background(), []byte(`[]`)); err != nil {
		t.Fatalf("WritePrimary: %v", err)
	}

	// The backup still holds the previous payload.
	backup, err := store.Get(context.Background(), "backup")
	if err != nil {
		t.Fatalf("backup should survive, got err = %v", err)
	}
	if string(backup) != `[3]` {
		t.Errorf("backup = %s, want [3]", backup)
	}

	// A read serves the new primary and never reaches the backup.
	result, err := rec.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if result.Key != "primary" || string(result.Data) != `[]` {
		t.Errorf("read %s from %s, want [] from primary", result.Data, result.Key)
	}
}

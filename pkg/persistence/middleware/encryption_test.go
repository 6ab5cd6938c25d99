package middleware_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"github.com/aleung/fsm/pkg/adapters/memory"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/persistence/middleware"
	"github.com/aleung/fsm/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func mustEncrypt(t *testing.T, next ports.Journal, cfg middleware.EncryptionConfig) ports.Journal {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware failed: %v", err)
	}
	return mw(next)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	// Setup
	underlying := memory.NewJournal(0)
	journal := mustEncrypt(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	rec := domain.TransitionEvent{ID: "t1", Machine: "m", From: "a", To: "b", Data: map[string]any{"secret": "my-secret-sauce"}}

	// 1. Record
	if err := journal.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// 2. Verify the underlying journal directly (should be encrypted)
	stored, err := underlying.List(ctx, "m", 0)
	if err != nil {
		t.Fatalf("Underlying list failed: %v", err)
	}
	envelope := stored[0].Data.(map[string]any)
	if val, ok := envelope["secret"]; ok {
		t.Fatalf("Expected secret to be hidden, found: %v", val)
	}
	if _, ok := envelope[middleware.EnvelopeKey]; !ok {
		t.Fatal("Expected envelope field in data")
	}
	if stored[0].From != "a" || stored[0].To != "b" {
		t.Errorf("Transition fields must stay readable, got %+v", stored[0])
	}

	// 3. List via middleware (should be decrypted)
	loaded, err := journal.List(ctx, "m", 0)
	if err != nil {
		t.Fatalf("List via middleware failed: %v", err)
	}
	if loaded[0].Data.(map[string]any)["secret"] != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", loaded[0].Data)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	// Setup
	underlying := memory.NewJournal(0)
	oldKey := generateKey(t)
	newKey := generateKey(t)

	journalOld := mustEncrypt(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	ctx := context.Background()

	// 1. Record with OLD key
	if err := journalOld.Record(ctx, domain.TransitionEvent{ID: "old", Machine: "m", Data: "encrypted-with-old-key"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// 2. List with NEW key (Active) + OLD key (Fallback)
	journalNew := mustEncrypt(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})

	recs, err := journalNew.List(ctx, "m", 0)
	if err != nil {
		t.Fatalf("List with rotated key failed: %v", err)
	}
	if recs[0].Data != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed, got %v", recs[0].Data)
	}

	// 3. Record again (should now use the NEW key)
	if err := journalNew.Record(ctx, domain.TransitionEvent{ID: "new", Machine: "m", Data: "encrypted-with-new-key"}); err != nil {
		t.Fatalf("Record with new key failed: %v", err)
	}

	// 4. Verify we CANNOT list with just the OLD key anymore
	if _, err := journalOld.List(ctx, "m", 0); err == nil {
		t.Error("Expected failure when listing new-key records with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainData(t *testing.T) {
	underlying := memory.NewJournal(0)
	_ = underlying.Record(context.Background(), domain.TransitionEvent{ID: "plain", Machine: "m", Data: "visible"})

	journal := mustEncrypt(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if _, err := journal.List(context.Background(), "m", 0); err == nil {
		t.Error("Expected failure for a record without envelope")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	if !errors.Is(err, middleware.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	if !errors.Is(err, middleware.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey for fallback, got %v", err)
	}
}

func TestChain_MasksBeforeEncrypting(t *testing.T) {
	underlying := memory.NewJournal(0)
	pii, err := middleware.NewPIIMiddleware([]string{"token"})
	if err != nil {
		t.Fatal(err)
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}

	journal := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()
	if err := journal.Record(ctx, domain.TransitionEvent{ID: "x", Machine: "m", Data: map[string]any{"token": "abc", "user": "bob"}}); err != nil {
		t.Fatal(err)
	}

	recs, err := journal.List(ctx, "m", 0)
	if err != nil {
		t.Fatal(err)
	}
	data := recs[0].Data.(map[string]any)
	if data["token"] != middleware.Mask || data["user"] != "bob" {
		t.Errorf("unexpected data after chain: %v", data)
	}
}

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"prism-sync/relay"
)

func TestUserIDs(t *testing.T) {
	if got := userIDs(3, "u", 5, nil); !reflect.DeepEqual(got, []string{"u-5", "u-6", "u-7"}) {
		t.Fatalf("unexpected ids: %#v", got)
	}
	if got := userIDs(1, "u", 1, []string{"alice"}); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("unexpected ids: %#v", got)
	}
}

func TestGeneratedTokensVerifyAgainstRelay(t *testing.T) {
	secret := []byte("shh")
	tokens, err := generateTokens(secret, []string{"u-1", "u-2"}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	auth := relay.NewSharedSecretAuth(secret)
	for i, tok := range tokens {
		uid, err := auth.UserIDFromToken(tok)
		if err != nil {
			t.Fatalf("token %d rejected: %v", i, err)
		}
		if want := []string{"u-1", "u-2"}[i]; uid != want {
			t.Fatalf("unexpected subject %q, want %q", uid, want)
		}
	}

	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	if err := writeTokens(path, tokens); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var back []string
	if err := sonic.Unmarshal(data, &back); err != nil || !reflect.DeepEqual(back, tokens) {
		t.Fatalf("unexpected file contents %s: %v", data, err)
	}
}

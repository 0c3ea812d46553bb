package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"litegram/pkg/keychain"
)

func TestTokenSetAndDelete(t *testing.T) {
	keyring.MockInit()

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetIn(strings.NewReader("  123:abc  \n"))
	rootCmd.SetArgs([]string{"token", "set", "--account", "test-bot"})
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("token set returned error: %v", err)
	}

	got, err := keychain.Get("test-bot")
	if err != nil {
		t.Fatalf("keychain.Get returned error: %v", err)
	}
	if got != "123:abc" {
		t.Fatalf("stored token = %q, want %q", got, "123:abc")
	}

	rootCmd.SetArgs([]string{"token", "delete", "--account", "test-bot"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("token delete returned error: %v", err)
	}
	if _, err := keychain.Get("test-bot"); err == nil {
		t.Fatal("expected token to be removed")
	}
}

func TestReadTokenRejectsEmptyInput(t *testing.T) {
	if _, err := readToken(strings.NewReader("   \n")); err == nil {
		t.Fatal("expected error for empty token")
	}
}

package vault

import (
	"errors"
	"testing"
)

func TestSealOpen(t *testing.T) {
	plaintext := []byte(`{"incomeData":[]}`)

	blob, err := Seal("user-1", plaintext)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if blob == string(plaintext) {
		t.Fatal("Seal() returned the plaintext")
	}

	got, err := Open("user-1", blob)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("Open() = %q, want %q", got, plaintext)
	}

	// a fresh nonce every time.
	again, _ := Seal("user-1", plaintext)
	if again == blob {
		t.Error("Seal() twice gave the same blob")
	}
}

func TestOpen_Failures(t *testing.T) {
	blob, err := Seal("user-1", []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		userID string
		blob   string
	}{
		{"other user", "user-2", blob},
		{"plain json", "user-1", `{"incomeData":[]}`},
		{"too short", "user-1", "AAAA"},
		{"tampered", "user-1", blob[:len(blob)-4] + "AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(tt.userID, tt.blob); err == nil {
				t.Error("Open() succeeded, want an error")
			}
		})
	}
}

func TestDeriveKey_EmptyUser(t *testing.T) {
	if _, err := DeriveKey(""); !errors.Is(err, ErrEmptyUser) {
		t.Errorf("DeriveKey(\"\") error = %v, want %v", err, ErrEmptyUser)
	}
}

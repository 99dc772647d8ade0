package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGet(t *testing.T) {
	gokeyring.MockInit()

	tests := []struct {
		account Account
		value   string
	}{
		{AccountDatabase, "postgres://keeprun@localhost:5432/keeprun?sslmode=disable"},
		{AccountJWTSecret, "s3cr3t"},
	}

	for _, tt := range tests {
		t.Run(string(tt.account), func(t *testing.T) {
			if err := Set(tt.account, tt.value); err != nil {
				t.Fatalf("Set() failed: %v", err)
			}
			got, err := Get(tt.account)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got != tt.value {
				t.Errorf("Get() = %q, want %q", got, tt.value)
			}
		})
	}

	if got, _ := GetConnectionString(); got != tests[0].value {
		t.Errorf("GetConnectionString() = %q", got)
	}
	if got, _ := GetJWTSecret(); got != tests[1].value {
		t.Errorf("GetJWTSecret() = %q", got)
	}
}

func TestSetEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := Set(AccountJWTSecret, ""); err == nil {
		t.Error("Set() with empty value should return an error")
	}
}

func TestGetNotFound(t *testing.T) {
	gokeyring.MockInit()

	if _, err := Get(AccountDatabase); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want %v", err, ErrNotFound)
	}
	if err := Delete(AccountDatabase); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want %v", err, ErrNotFound)
	}
}

func TestDelete(t *testing.T) {
	gokeyring.MockInit()

	if err := Set(AccountJWTSecret, "value"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := Delete(AccountJWTSecret); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := Get(AccountJWTSecret); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want %v", err, ErrNotFound)
	}
}

func TestUnavailable(t *testing.T) {
	gokeyring.MockInitWithError(errors.New("no dbus session"))
	defer gokeyring.MockInit()

	if IsAvailable() {
		t.Error("IsAvailable() should be false")
	}
	if _, err := Get(AccountDatabase); !errors.Is(err, ErrKeyringUnavailable) {
		t.Errorf("Get() error = %v, want %v", err, ErrKeyringUnavailable)
	}
}

func TestParseAccount(t *testing.T) {
	for _, name := range []string{"db", "database", "database-connection"} {
		if a, err := ParseAccount(name); err != nil || a != AccountDatabase {
			t.Errorf("ParseAccount(%q) = %v, %v", name, a, err)
		}
	}
	if a, err := ParseAccount("jwt"); err != nil || a != AccountJWTSecret {
		t.Errorf("ParseAccount(jwt) = %v, %v", a, err)
	}
	if _, err := ParseAccount("api"); err == nil {
		t.Error("ParseAccount(api) should fail")
	}
}

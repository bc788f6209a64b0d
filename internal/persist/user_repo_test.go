package persist

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// FindByUsername, Create, and ListPage all require a live Postgres pool
// and have no test here (the lobby service tests run with nil repos and
// bypass them); ValidatePassword is the one piece of pure logic in this
// file.
func TestValidatePassword(t *testing.T) {
	r := &UserRepo{}
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}

	if !r.ValidatePassword(string(hash), "hunter2") {
		t.Error("ValidatePassword rejected the correct password")
	}
	if r.ValidatePassword(string(hash), "wrong") {
		t.Error("ValidatePassword accepted the wrong password")
	}
}

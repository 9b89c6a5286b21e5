package password

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	phc, err := Hash(Default, "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("unexpected format: %q", phc)
	}
	if !Verify("correct horse battery staple", phc) {
		t.Fatal("verify must accept the original password")
	}
	if Verify("wrong password", phc) {
		t.Fatal("verify must reject a different password")
	}
}

func TestHash_SaltsDiffer(t *testing.T) {
	a, err := Hash(Default, "same input")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Hash(Default, "same input")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ (random salt)")
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	if _, err := Hash(Default, ""); err == nil {
		t.Fatal("empty password must be rejected")
	}
}

func TestVerify_Garbage(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"$argon2id$v=19$m=65536,t=3,p=1$notb64!!$notb64!!",
		"$bcrypt$whatever",
		"$argon2id$v=19$m=bad$c2FsdA$ZGs",
	}
	for _, phc := range cases {
		if Verify("anything", phc) {
			t.Fatalf("garbage accepted: %q", phc)
		}
	}
}

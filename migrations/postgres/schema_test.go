package postgres

import (
	"regexp"
	"strings"
	"testing"
)

// El adapter pg bindea User.PasswordHash (*string) tal cual: nil debe
// poder insertarse como NULL. Un NOT NULL en la columna rompería todo
// signup federado y guest.
func TestPasswordHashColumnIsNullable(t *testing.T) {
	raw, err := SchemaFS.ReadFile(SchemaDir + "/0001_init.sql")
	if err != nil {
		t.Fatal(err)
	}

	re := regexp.MustCompile(`(?m)^\s*password_hash\s+(.*)$`)
	m := re.FindStringSubmatch(string(raw))
	if m == nil {
		t.Fatal("password_hash column not found in schema")
	}
	if strings.Contains(strings.ToUpper(m[1]), "NOT NULL") {
		t.Fatalf("password_hash must be nullable: %q", strings.TrimSpace(m[0]))
	}
}

package migrations

import (
	"strings"
	"testing"
)

func TestSchemaEmailCollation(t *testing.T) {
	schema, err := embedMigrations.ReadFile("00001_create_schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	// The default utf8mb4 collation compares case-insensitively, which
	// would make Foo@x and foo@x the same account. The email column must
	// carry a binary collation so lookups and the unique key match
	// exactly as stored.
	var emailLine string
	for _, line := range strings.Split(string(schema), "\n") {
		if strings.Contains(line, "email ") && strings.Contains(line, "VARCHAR") {
			emailLine = line
			break
		}
	}
	if emailLine == "" {
		t.Fatal("email column not found in schema")
	}
	if !strings.Contains(emailLine, "utf8mb4_bin") {
		t.Errorf("email column must use a binary collation, got %q", strings.TrimSpace(emailLine))
	}
}

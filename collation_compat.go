package main

import (
	"fmt"
	"sort"
	"strings"
)

// isMySQLCollation reports whether name looks like a MySQL collation
// (charset prefix, _ci/_cs/_bin suffix), e.g. "utf8mb4_general_ci".
func isMySQLCollation(name string) bool {
	lower := strings.ToLower(name)
	if lower == "binary" {
		return true
	}
	if !strings.Contains(lower, "_") {
		return false
	}
	return strings.HasSuffix(lower, "_ci") || strings.HasSuffix(lower, "_cs") || strings.HasSuffix(lower, "_bin")
}

// pgCollationName maps a collation to the name PostgreSQL should receive.
// MySQL _bin collations become the deterministic "C" collation; other MySQL
// collations have no built-in equivalent and report false. Anything else is
// passed through untouched.
func pgCollationName(collation string) (string, bool) {
	if !isMySQLCollation(collation) {
		return collation, true
	}
	lower := strings.ToLower(collation)
	if lower == "binary" || strings.HasSuffix(lower, "_bin") || strings.HasSuffix(lower, "_cs") {
		return "C", true
	}
	return "", false
}

// sqliteCollationName maps MySQL collations onto SQLite's built-in
// NOCASE and BINARY collations.
func sqliteCollationName(collation string) string {
	if !isMySQLCollation(collation) {
		return collation
	}
	if strings.HasSuffix(strings.ToLower(collation), "_ci") {
		return "NOCASE"
	}
	return "BINARY"
}

// collationWarnings reports column collations the dialect drops. Columns
// that also carry a primary or unique key are listed separately, since
// their uniqueness becomes case-sensitive.
func collationWarnings(d Dialect, fields []FieldSpec) []string {
	if _, ok := d.(postgresDialect); !ok {
		return nil
	}

	// dropped collation → count of columns using it
	dropped := make(map[string]int)
	// dropped collation → unique/PK columns using it
	uniqueRefs := make(map[string][]string)
	for _, f := range fields {
		if f.Collation == "" || !collatable(d, f.Type) {
			continue
		}
		if _, ok := pgCollationName(f.Collation); ok {
			continue
		}
		dropped[f.Collation]++
		if f.IsPrimaryKey || f.IsUnique {
			uniqueRefs[f.Collation] = append(uniqueRefs[f.Collation], f.Name)
		}
	}

	var warnings []string
	for _, coll := range sortedKeys(dropped) {
		warnings = append(warnings, fmt.Sprintf(
			"%d column(s) use %s (case-insensitive); the collation is dropped and PostgreSQL text comparisons are case-sensitive by default",
			dropped[coll], coll))
	}
	for _, coll := range sortedKeys(uniqueRefs) {
		warnings = append(warnings, fmt.Sprintf(
			"unique index/PK on %s column(s): uniqueness becomes case-sensitive: %s",
			coll, strings.Join(uniqueRefs[coll], ", ")))
	}
	return warnings
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package main

import (
	"fmt"
	"regexp"
	"strings"
)

// mysqlCollatableTypes are the MySQL types that accept a column COLLATE clause.
var mysqlCollatableTypes = regexp.MustCompile(`^(TINYTEXT|TEXT|MEDIUMTEXT|LONGTEXT|VARCHAR|CHAR|ENUM|SET)$`)

var (
	booleanTrue  = regexp.MustCompile(`(?i)^(1|t|true|yes)$`)
	booleanFalse = regexp.MustCompile(`(?i)^(0|f|false|no)$`)
)

// synthesizeCreate produces the CREATE TABLE statement for fields, followed
// by any CREATE INDEX statements the dialect cannot declare inline.
func synthesizeCreate(d Dialect, t TableTarget, fields []FieldSpec, indexes []IndexSpec, opts TableOptions) (SynthesisResult, error) {
	if err := t.validate(); err != nil {
		return SynthesisResult{}, err
	}
	if err := validateFields(fields); err != nil {
		return SynthesisResult{}, err
	}
	keys, err := collectIndexes(d, fields, indexes)
	if err != nil {
		return SynthesisResult{}, err
	}

	defs := make([]string, 0, len(fields)+len(keys))
	for i, f := range fields {
		def, err := columnDefinition(d, f)
		if err != nil {
			return SynthesisResult{}, fmt.Errorf("field %d (%q): %w", i, f.Name, err)
		}
		defs = append(defs, def)
	}

	var trailing []string
	for _, k := range keys {
		if d.InlineIndex(k.Kind) {
			defs = append(defs, indexDefinition(d, k))
			continue
		}
		trailing = append(trailing, d.CreateIndex(t, indexName(t, k), k.Kind == IndexUnique, k.Columns))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n  ", d.QualifiedTable(t))
	b.WriteString(strings.Join(defs, ",\n  "))
	b.WriteString("\n)")

	if !opts.empty() {
		if !d.SupportsTableOptions() {
			return SynthesisResult{}, validationErrorf("table options (engine, charset, collation, comment) are not supported by %s", d.Name())
		}
		writeTableOptions(&b, d, opts)
	}

	stmts := append([]string{b.String()}, trailing...)
	return newSynthesisResult(stmts, columnNames(fields)), nil
}

// synthesizeAlterAdd produces the ALTER TABLE ... ADD COLUMN DDL for fields.
//
// Dialects with multi-clause ALTER get a single statement; the others get
// one statement per clause. pos applies to the first new column, and each
// following column is placed after the one before it so the declared order
// is kept.
func synthesizeAlterAdd(d Dialect, t TableTarget, fields []FieldSpec, pos Position) (SynthesisResult, error) {
	if err := t.validate(); err != nil {
		return SynthesisResult{}, err
	}
	if err := validateFields(fields); err != nil {
		return SynthesisResult{}, err
	}
	if pos.Kind != PositionDefault && !d.SupportsPosition() {
		return SynthesisResult{}, validationErrorf("%s does not support FIRST/AFTER column positions", d.Name())
	}
	keys, err := collectIndexes(d, fields, nil)
	if err != nil {
		return SynthesisResult{}, err
	}

	var clauses []string
	cur := pos
	for i, f := range fields {
		def, err := columnDefinition(d, f)
		if err != nil {
			return SynthesisResult{}, fmt.Errorf("field %d (%q): %w", i, f.Name, err)
		}
		clauses = append(clauses, "ADD COLUMN "+def+positionClause(d, cur))
		// Each later column follows the one just emitted, blank names included.
		if cur.Kind != PositionDefault {
			cur = positionAfter(f.Name)
		}
	}

	var trailing []string
	for _, k := range keys {
		switch {
		case d.InlineIndex(k.Kind) && d.SupportsMultiAlter():
			clauses = append(clauses, "ADD "+indexDefinition(d, k))
		case k.Kind == IndexPrimary:
			return SynthesisResult{}, validationErrorf("%s cannot add a primary key to an existing table", d.Name())
		default:
			trailing = append(trailing, d.CreateIndex(t, indexName(t, k), k.Kind == IndexUnique, k.Columns))
		}
	}

	head := "ALTER TABLE " + d.QualifiedTable(t)
	var stmts []string
	if d.SupportsMultiAlter() {
		stmts = append(stmts, head+"\n  "+strings.Join(clauses, ",\n  "))
	} else {
		for _, c := range clauses {
			stmts = append(stmts, head+" "+c)
		}
	}
	stmts = append(stmts, trailing...)
	return newSynthesisResult(stmts, columnNames(fields)), nil
}

func validateFields(fields []FieldSpec) error {
	if len(fields) == 0 {
		return validationErrorf("at least one field is required")
	}
	if len(fields) > maxFieldRows {
		return validationErrorf("too many fields: %d (maximum %d)", len(fields), maxFieldRows)
	}
	for i, f := range fields {
		if strings.TrimSpace(f.Type) == "" {
			return validationErrorf("field %d (%q): column type is required", i, f.Name)
		}
	}
	return nil
}

// columnNames returns every field name in order, empty names included.
func columnNames(fields []FieldSpec) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// columnDefinition renders one column: name, type, attributes, collation,
// nullability, default, auto-increment and comment.
func columnDefinition(d Dialect, f FieldSpec) (string, error) {
	var b strings.Builder
	b.WriteString(d.QuoteIdentifier(f.Name))
	b.WriteByte(' ')

	typ, err := columnType(f)
	if err != nil {
		return "", err
	}
	b.WriteString(typ)

	if attr := strings.TrimSpace(f.Attributes); attr != "" {
		b.WriteString(" " + attr)
	}
	if f.Collation != "" && collatable(d, f.Type) {
		if clause := d.CollateClause(f.Collation); clause != "" {
			b.WriteString(" " + clause)
		}
	}
	if f.IsNullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}

	dflt, err := defaultClause(d, f)
	if err != nil {
		return "", err
	}
	if dflt != "" {
		b.WriteString(" " + dflt)
	}

	if f.AutoIncrement {
		clause := d.AutoIncrementClause()
		if clause == "" {
			return "", validationErrorf("auto-increment is not supported by %s", d.Name())
		}
		b.WriteString(" " + clause)
	}
	if f.Comment != "" {
		if !d.SupportsColumnComment() {
			return "", validationErrorf("column comments are not supported by %s", d.Name())
		}
		b.WriteString(" COMMENT " + d.QuoteString(f.Comment))
	}
	return b.String(), nil
}

// columnType joins the declared type with its length/values. ENUM and SET
// value lists must be well-formed quoted literals.
func columnType(f FieldSpec) (string, error) {
	typ := strings.TrimSpace(f.Type)
	length := strings.TrimSpace(f.Length)
	if length != "" {
		if strings.Contains(typ, "(") {
			return "", validationErrorf("type %q already carries a length, got length %q too", typ, length)
		}
		typ += "(" + length + ")"
	}
	if isEnumSetType(typ) {
		if _, err := parseEnumSetValues(typ); err != nil {
			return "", validationErrorf("field %q: %v", f.Name, err)
		}
	}
	return typ, nil
}

// baseType returns the upper-cased type name without length or modifiers.
func baseType(typ string) string {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	if i := strings.IndexAny(typ, "( "); i >= 0 {
		typ = typ[:i]
	}
	return typ
}

func collatable(d Dialect, typ string) bool {
	if _, ok := d.(mysqlDialect); ok {
		return mysqlCollatableTypes.MatchString(baseType(typ))
	}
	return true
}

func defaultClause(d Dialect, f FieldSpec) (string, error) {
	kind := strings.ToUpper(strings.TrimSpace(f.DefaultKind))
	if kind == "" && f.DefaultValue != "" {
		kind = "USER_DEFINED"
	}

	switch kind {
	case "", "NONE":
		return "", nil
	case "NULL":
		// A NOT NULL column keeps its nullability; the NULL default is dropped.
		if !f.IsNullable {
			return "", nil
		}
		return "DEFAULT NULL", nil
	case "CURRENT_TIMESTAMP":
		return "DEFAULT CURRENT_TIMESTAMP", nil
	case "USER_DEFINED":
	default:
		return "", validationErrorf("unsupported default type %q", f.DefaultKind)
	}

	v := f.DefaultValue
	switch base := baseType(f.Type); {
	case base == "TIMESTAMP" && v == "0":
		return "DEFAULT 0", nil
	case base == "BIT":
		bits := strings.Map(func(r rune) rune {
			if r == '1' {
				return '1'
			}
			return '0'
		}, v)
		return "DEFAULT b'" + bits + "'", nil
	case base == "BOOLEAN" || base == "BOOL":
		if booleanTrue.MatchString(v) {
			return "DEFAULT TRUE", nil
		}
		if booleanFalse.MatchString(v) {
			return "DEFAULT FALSE", nil
		}
	}
	return "DEFAULT " + d.QuoteString(v), nil
}

func positionClause(d Dialect, pos Position) string {
	switch pos.Kind {
	case PositionFirst:
		return " FIRST"
	case PositionAfter:
		return " AFTER " + d.QuoteIdentifier(pos.After)
	default:
		return ""
	}
}

// collectIndexes turns per-field key flags and declared composite indexes
// into one ordered list: the primary key first, then per-field keys in field
// order, then the declared indexes.
func collectIndexes(d Dialect, fields []FieldSpec, declared []IndexSpec) ([]IndexSpec, error) {
	var primary []string
	var perField []IndexSpec
	for i, f := range fields {
		flagged := f.IsPrimaryKey || f.IsUnique || f.IsIndexed || f.IsFulltext
		if flagged && f.Name == "" {
			return nil, validationErrorf("field %d: a key requires a column name", i)
		}
		if f.IsPrimaryKey {
			primary = append(primary, f.Name)
		}
		if f.IsUnique {
			perField = append(perField, IndexSpec{Kind: IndexUnique, Columns: []string{f.Name}})
		}
		if f.IsIndexed {
			perField = append(perField, IndexSpec{Kind: IndexPlain, Columns: []string{f.Name}})
		}
		if f.IsFulltext {
			perField = append(perField, IndexSpec{Kind: IndexFulltext, Columns: []string{f.Name}})
		}
	}

	var keys []IndexSpec
	if len(primary) > 0 {
		keys = append(keys, IndexSpec{Kind: IndexPrimary, Columns: primary})
	}
	keys = append(keys, perField...)
	for _, idx := range declared {
		if idx.Kind == IndexPrimary && hasPrimary(keys) {
			return nil, validationErrorf("multiple primary keys defined")
		}
		if len(idx.Columns) == 0 {
			return nil, validationErrorf("%s index %q has no columns", idx.Kind, idx.Name)
		}
		if idx.Kind == IndexPrimary {
			keys = append([]IndexSpec{idx}, keys...)
			continue
		}
		keys = append(keys, idx)
	}

	for _, k := range keys {
		if reason, unsupported := indexUnsupportedReason(d, k.Kind); unsupported {
			return nil, validationErrorf("%s", reason)
		}
	}
	return keys, nil
}

func hasPrimary(keys []IndexSpec) bool {
	for _, k := range keys {
		if k.Kind == IndexPrimary {
			return true
		}
	}
	return false
}

// indexDefinition renders an index as a CREATE TABLE element; prefixed with
// "ADD " it is also a valid ALTER TABLE clause.
func indexDefinition(d Dialect, k IndexSpec) string {
	cols := columnList(d, k.Columns)
	switch k.Kind {
	case IndexPrimary:
		return "PRIMARY KEY " + cols
	case IndexUnique:
		if k.Name != "" {
			return "CONSTRAINT " + d.QuoteIdentifier(k.Name) + " UNIQUE " + cols
		}
		return "UNIQUE " + cols
	default:
		if k.Name != "" {
			return string(k.Kind) + " " + d.QuoteIdentifier(k.Name) + " " + cols
		}
		return string(k.Kind) + " " + cols
	}
}

// indexName names a standalone index, defaulting to <table>_<cols>_idx
// (or _key for unique indexes).
func indexName(t TableTarget, k IndexSpec) string {
	if k.Name != "" {
		return k.Name
	}
	suffix := "idx"
	if k.Kind == IndexUnique {
		suffix = "key"
	}
	return t.Table + "_" + strings.Join(k.Columns, "_") + "_" + suffix
}

// writeTableOptions appends MySQL table options after the closing paren.
func writeTableOptions(b *strings.Builder, d Dialect, opts TableOptions) {
	if opts.Engine != "" {
		b.WriteString(" ENGINE=" + opts.Engine)
	}
	if opts.Charset != "" {
		b.WriteString(" DEFAULT CHARSET=" + opts.Charset)
	}
	if opts.Collation != "" {
		b.WriteString(" COLLATE=" + opts.Collation)
	}
	if opts.Comment != "" {
		b.WriteString(" COMMENT=" + d.QuoteString(opts.Comment))
	}
}

// Package schema infers SQL column types for a parsed dataset and renders
// them as text for LLM prompts.
package schema

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/SheetSQL/internal/dataset"
)

// SQLType is the SQL type suggested for a column.
type SQLType string

const (
	Integer SQLType = "INTEGER"
	Real    SQLType = "REAL"
	Date    SQLType = "DATE"
	Boolean SQLType = "BOOLEAN"
	Text    SQLType = "TEXT"
)

// Column pairs a dataset column name with its inferred SQL type.
type Column struct {
	Name string
	Type SQLType
}

// InferType maps a native column type to a SQL type. Date indicators win over
// every other indicator; anything unrecognised is TEXT.
func InferType(native string) SQLType {
	n := strings.ToLower(native)
	switch {
	case strings.Contains(n, "date"):
		return Date
	case strings.Contains(n, "int"):
		return Integer
	case strings.Contains(n, "float"):
		return Real
	case strings.Contains(n, "bool"):
		return Boolean
	default:
		return Text
	}
}

// Infer returns one Column per dataset column, in dataset order.
func Infer(ds *dataset.Dataset) []Column {
	cols := make([]Column, len(ds.Columns))
	for i, c := range ds.Columns {
		cols[i] = Column{Name: c.Name, Type: InferType(string(c.Type))}
	}
	return cols
}

// ToText serializes columns as "name (TYPE)" entries joined by commas.
func ToText(cols []Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.Type)
	}
	return strings.Join(parts, ", ")
}

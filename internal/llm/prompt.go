package llm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/SheetSQL/internal/dataset"
	"github.com/JonMunkholm/SheetSQL/internal/schema"
)

const (
	// Temperature keeps output close to deterministic; creative SQL is not wanted.
	Temperature float32 = 0.1

	// MaxOutputTokens fits a CREATE TABLE plus INSERT statements for a small sample.
	MaxOutputTokens = 3000
)

// SystemInstructions is sent with every request regardless of the data.
const SystemInstructions = `You are a helpful assistant that writes SQL to create a database table from a user's uploaded data file and instructions.
Always provide a CREATE TABLE statement together with INSERT statements that load every row and column of the provided data.
When data is missing, handle it according to SQL best practices for the type of each column.`

const userPromptTemplate = `You are a helpful assistant that writes SQL to create a database table from a user's uploaded data file and instructions.
Provide SQL that creates the table and also SQL that inserts all rows and columns of the data in the file.
If any data is missing, follow SQL best practices for managing each type of missing data.

Columns of the table and their data types:
%s

First row of data from the table, for context:
%s

Additional instructions or context from the user:
%s

Generate the appropriate SQL 'CREATE TABLE' statement, inferring the best suited SQL data types, followed by the INSERT statements:`

// BuildRequest assembles the generation request for a dataset. The output
// depends only on its arguments.
func BuildRequest(cols []schema.Column, sample dataset.Record, instruction string) GenerationRequest {
	return GenerationRequest{
		SystemInstructions: SystemInstructions,
		UserPrompt:         fmt.Sprintf(userPromptTemplate, schema.ToText(cols), FormatRecord(sample), instruction),
		Temperature:        Temperature,
		MaxOutputTokens:    MaxOutputTokens,
	}
}

// FormatRecord renders a record as a mapping literal, e.g.
// {"id": 1, "price": 9.99, "signup_date": "2024-01-15"}.
func FormatRecord(rec dataset.Record) string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, f := range rec {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(f.Name))
		sb.WriteString(": ")
		sb.WriteString(formatValue(f.Type, f.Value))
	}
	sb.WriteString("}")
	return sb.String()
}

func formatValue(typ dataset.NativeType, v any) string {
	switch val := v.(type) {
	case nil:
		return missingValue(typ)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		if !strings.ContainsAny(s, ".nN") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return strconv.Quote(val.Format(time.DateOnly))
		}
		return strconv.Quote(val.Format(time.DateTime))
	case string:
		return strconv.Quote(val)
	default:
		return strconv.Quote(fmt.Sprint(val))
	}
}

func missingValue(typ dataset.NativeType) string {
	switch typ {
	case dataset.Float64:
		return "NaN"
	case dataset.Datetime:
		return "NaT"
	default:
		return "null"
	}
}

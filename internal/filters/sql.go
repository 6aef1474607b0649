package filters

import "strings"

// Column names the groups compile against.
const (
	ColumnPath = "path"
	ColumnName = "name"
)

// Predicate compiles the filters to a SQL boolean expression over the index
// table. Every substring is bound as a parameter. alias qualifies the column
// names (e.g. "i" yields i.path); an empty alias leaves them bare. A zero
// Filters returns an empty clause.
//
// The expression assumes case_sensitive_like is enabled on the connection so
// LIKE agrees with strings.Contains.
func (f Filters) Predicate(alias string) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(column string, values []string, negate bool) {
		if len(values) == 0 {
			return
		}
		col := qualify(alias, column)
		if negate {
			for _, v := range values {
				clauses = append(clauses, col+` NOT LIKE ? ESCAPE '\'`)
				args = append(args, likePattern(v))
			}
			return
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, col+` LIKE ? ESCAPE '\'`)
			args = append(args, likePattern(v))
		}
		if len(parts) == 1 {
			clauses = append(clauses, parts[0])
			return
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}

	add(ColumnPath, f.Path, false)
	add(ColumnPath, f.PathExclude, true)
	add(ColumnName, f.File, false)
	add(ColumnName, f.FileExclude, true)

	if len(clauses) == 0 {
		return "", nil
	}
	return strings.Join(clauses, " AND "), args
}

// EscapeLike escapes LIKE metacharacters using backslash as the escape rune.
func EscapeLike(value string) string {
	if !strings.ContainsAny(value, `\%_`) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value) + 4)
	for _, r := range value {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func likePattern(substring string) string {
	return "%" + EscapeLike(substring) + "%"
}

func qualify(alias, column string) string {
	if alias == "" {
		return column
	}
	return alias + "." + column
}

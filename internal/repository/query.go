package repository

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
)

const emptyValue = "EMPTY"

// compiledQuery условие WHERE и его параметры.
type compiledQuery struct {
	where string
	args  []any
}

// queryCompiler переводит текст запроса вида `status:open AND field.reviewer:EMPTY` в SQL.
// Параметры нумеруются начиная с firstArg.
type queryCompiler struct {
	text     string
	next     int
	args     []any
	now      time.Time
	location *time.Location
}

func compileQuery(text string, firstArg int, now time.Time, loc *time.Location) (compiledQuery, error) {
	c := &queryCompiler{text: text, next: firstArg, now: now, location: loc}
	terms, err := c.split()
	if err != nil {
		return compiledQuery{}, err
	}
	if len(terms) == 0 {
		return compiledQuery{}, domain.NewInvalidQueryError(text, "empty query")
	}

	conds := make([]string, 0, len(terms))
	for _, term := range terms {
		cond, err := c.term(term)
		if err != nil {
			return compiledQuery{}, err
		}
		conds = append(conds, cond)
	}
	return compiledQuery{where: strings.Join(conds, " AND "), args: c.args}, nil
}

// split делит текст на термы по пробелам вне скобок и отбрасывает связки AND.
func (c *queryCompiler) split() ([]string, error) {
	var (
		terms []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		if t := cur.String(); !strings.EqualFold(t, "AND") {
			terms = append(terms, t)
		}
		cur.Reset()
	}
	for _, r := range c.text {
		switch {
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			if depth == 0 {
				return nil, domain.NewInvalidQueryError(c.text, "unbalanced parenthesis")
			}
			depth--
			cur.WriteRune(r)
		case unicode.IsSpace(r) && depth == 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if depth != 0 {
		return nil, domain.NewInvalidQueryError(c.text, "unbalanced parenthesis")
	}
	flush()
	return terms, nil
}

func (c *queryCompiler) term(term string) (string, error) {
	key, value, ok := strings.Cut(term, ":")
	if !ok || key == "" || value == "" {
		return "", domain.NewInvalidQueryError(c.text, fmt.Sprintf("term %q is not key:value", term))
	}

	switch {
	case key == "status":
		return "s.status = " + c.arg(value), nil
	case key == "resolution":
		return c.column("s.resolution", value), nil
	case key == "timepoint":
		return c.column("s.time_point", value), nil
	case key == "id":
		return "s.subject_id = ANY(" + c.arg(idList(value)) + ")", nil
	case key == "updated":
		return c.updated(value)
	case strings.HasPrefix(key, "field.") && len(key) > len("field."):
		return c.field(strings.TrimPrefix(key, "field."), value), nil
	default:
		return "", domain.NewInvalidQueryError(c.text, fmt.Sprintf("unknown key %q", key))
	}
}

func (c *queryCompiler) arg(v any) string {
	c.args = append(c.args, v)
	placeholder := fmt.Sprintf("$%d", c.next)
	c.next++
	return placeholder
}

func (c *queryCompiler) column(column, value string) string {
	if value == emptyValue {
		return column + " = ''"
	}
	return column + " = " + c.arg(value)
}

func (c *queryCompiler) field(name, value string) string {
	const exists = "EXISTS (SELECT 1 FROM subject_fields f WHERE f.scope = s.scope AND f.subject_id = s.subject_id AND f.name = %s AND %s)"
	n := c.arg(name)
	if value == emptyValue {
		return "NOT " + fmt.Sprintf(exists, n, "f.value <> ''")
	}
	return fmt.Sprintf(exists, n, "f.value = "+c.arg(value))
}

func (c *queryCompiler) updated(value string) (string, error) {
	var day time.Time
	if value == "today" {
		y, m, d := c.now.In(c.location).Date()
		day = time.Date(y, m, d, 0, 0, 0, 0, c.location)
	} else {
		parsed, err := time.ParseInLocation(time.DateOnly, value, c.location)
		if err != nil {
			return "", domain.NewInvalidQueryError(c.text, fmt.Sprintf("bad date %q", value))
		}
		day = parsed
	}
	from := c.arg(day)
	to := c.arg(day.AddDate(0, 0, 1))
	return fmt.Sprintf("s.updated_at >= %s AND s.updated_at < %s", from, to), nil
}

// idList разбирает `(a b)` или одиночный идентификатор, отбрасывая префикс области.
func idList(value string) []string {
	value = strings.TrimSuffix(strings.TrimPrefix(value, "("), ")")
	ids := strings.Fields(value)
	for i, id := range ids {
		if j := strings.LastIndex(id, "/"); j >= 0 {
			ids[i] = id[j+1:]
		}
	}
	return ids
}

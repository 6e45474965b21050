package nlsql

import (
	"strings"

	"github.com/citypulse/trafficqa/errs"
)

var statementKeywords = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH"}

// Validate applies cheap structural checks to generated SQL before it is
// accepted: the statement must start with a recognized keyword, quotes must
// be balanced, and parentheses must nest. It does not parse SQL.
func Validate(queryText string) error {
	trimmed := strings.TrimSpace(queryText)
	if trimmed == "" {
		return errs.NewValidationError("empty statement")
	}

	upper := strings.ToUpper(trimmed)
	recognized := false
	for _, kw := range statementKeywords {
		if strings.HasPrefix(upper, kw+" ") || upper == kw {
			recognized = true
			break
		}
	}
	if !recognized {
		return errs.NewValidationError("statement does not start with a recognized keyword")
	}

	if err := checkBalance(trimmed); err != nil {
		return err
	}
	return nil
}

// checkBalance verifies quote pairing and parenthesis nesting, ignoring
// parentheses inside quoted literals.
func checkBalance(s string) error {
	depth := 0
	inSingle := false
	inDouble := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inSingle:
			if c == '\'' {
				// doubled quote is an escaped literal quote
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return errs.NewValidationError("unbalanced parentheses")
			}
		}
	}
	if inSingle || inDouble {
		return errs.NewValidationError("unbalanced quotes")
	}
	if depth != 0 {
		return errs.NewValidationError("unbalanced parentheses")
	}
	return nil
}

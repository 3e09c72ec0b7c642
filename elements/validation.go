package elements

import (
	"regexp"

	"github.com/backset/backset"
	"github.com/backset/backset/kit/errors"
)

const (
	idMinLen = 1
	idMaxLen = 256
)

// Base64 URL characters (except =) and some others like \~@-.:+
var idPattern = regexp.MustCompile(`(?i)^[a-z0-9_~@\\/][a-z0-9_\\~@.:+-]*$`)

var errReservedCreatedAt = &errors.Error{
	Code: errors.EInvalid,
	Msg:  `cannot provide reserved attribute "created_at"`,
}

var errIDMismatch = &errors.Error{
	Code: errors.EInvalid,
	Msg:  "id mismatch",
}

// validateCreate checks the optional client-supplied id. The document
// body itself is schema-less; only the reserved created_at key is
// rejected, which happens in the service before any row is written.
func validateCreate(create backset.ElementCreate) error {
	if create.ID == "" {
		return nil
	}

	fields := errors.FieldErrors{}
	if len(create.ID) < idMinLen || len(create.ID) > idMaxLen {
		fields.Add("id", errors.FieldError{
			Code:   "length",
			Params: map[string]interface{}{"min": idMinLen, "max": idMaxLen, "value": create.ID},
		})
	} else if !idPattern.MatchString(create.ID) {
		fields.Add("id", errors.FieldError{
			Code: "invalid_id",
			Message: `id can only contains letters, numbers or the symbols \_~@-.:+, ` +
				`and must starts with a letter or number, or the symbols \_~@`,
			Params: map[string]interface{}{"value": create.ID},
		})
	}

	if len(fields) > 0 {
		return errors.Validation(fields)
	}
	return nil
}

package tenants

import (
	"regexp"
	"unicode/utf8"

	"github.com/backset/backset"
	"github.com/backset/backset/kit/errors"
)

const (
	idMinLen   = 3
	idMaxLen   = 40
	nameMinLen = 3
	nameMaxLen = 80
)

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9-]+$`)

// ids that would collide with endpoint paths
var reservedIDs = map[string]struct{}{
	"tenants": {},
	"health":  {},
	"metrics": {},
}

func validateCreate(create backset.TenantCreate) error {
	fields := errors.FieldErrors{}
	validateID(fields, create.ID)
	validateName(fields, create.Name)
	if len(fields) > 0 {
		return errors.Validation(fields)
	}
	return nil
}

func validateUpdate(update backset.TenantUpdate) error {
	fields := errors.FieldErrors{}
	validateName(fields, update.Name)
	if len(fields) > 0 {
		return errors.Validation(fields)
	}
	return nil
}

func validateID(fields errors.FieldErrors, id string) {
	if n := utf8.RuneCountInString(id); n < idMinLen || n > idMaxLen {
		fields.Add("id", errors.FieldError{
			Code:   "length",
			Params: map[string]interface{}{"min": idMinLen, "max": idMaxLen, "value": id},
		})
		return
	}
	if !idPattern.MatchString(id) {
		fields.Add("id", errors.FieldError{
			Code:    "invalid_id",
			Message: `tenant id can only contains letters in lower case, numbers or the "-" symbol`,
			Params:  map[string]interface{}{"value": id},
		})
		return
	}
	if _, ok := reservedIDs[id]; ok {
		fields.Add("id", errors.FieldError{
			Code:    "forbidden_id",
			Message: "Forbidden tenant id.",
			Params:  map[string]interface{}{"value": id},
		})
	}
}

// validateName bounds the name length in characters, not bytes, so
// multibyte names are measured the way users count them.
func validateName(fields errors.FieldErrors, name string) {
	if n := utf8.RuneCountInString(name); n < nameMinLen || n > nameMaxLen {
		fields.Add("name", errors.FieldError{
			Code:   "length",
			Params: map[string]interface{}{"min": nameMinLen, "max": nameMaxLen, "value": name},
		})
	}
}

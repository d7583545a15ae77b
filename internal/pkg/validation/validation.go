package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 32
	MinPasswordLen = 6
	MaxPasswordLen = 72 // bcrypt ignores anything longer
)

// Usernames: letters, digits, underscore, dot and hyphen.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// Internal security codes: venue prefix, dot, six digits (sh.600000).
var securityCodeRe = regexp.MustCompile(`^[a-z]{2}\.[0-9]{6}$`)

func IsValidUsername(username string) bool {
	n := utf8.RuneCountInString(username)
	return n >= MinUsernameLen && n <= MaxUsernameLen && usernameRe.MatchString(username)
}

func IsValidPassword(password string) bool {
	return len(password) >= MinPasswordLen && len(password) <= MaxPasswordLen
}

func IsValidSecurityCode(code string) bool {
	return securityCodeRe.MatchString(code)
}

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with the custom "username", "password" and
// "seccode" tags registered.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return IsValidUsername(fl.Field().String())
		})
		_ = validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return IsValidPassword(fl.Field().String())
		})
		_ = validate.RegisterValidation("seccode", func(fl validator.FieldLevel) bool {
			return IsValidSecurityCode(fl.Field().String())
		})
	})
	return validate
}

// Struct validates v and flattens any failure into one readable error.
func Struct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "username":
		return fmt.Sprintf("username must be %d-%d characters of letters, digits, '_', '.' or '-'", MinUsernameLen, MaxUsernameLen)
	case "password":
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLen)
	case "seccode":
		return field + " must look like sh.600000"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	}
	return field + " is invalid"
}

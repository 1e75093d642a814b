package user

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// emailPattern is intentionally loose: one "@" and a dot in the domain part.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator checks create and update payloads.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a Validator with the user field rules and English messages.
func NewValidator() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Zero values must reach the custom rules, or "" would pass as present.
	for _, tag := range []string{"required_trimmed", "notblank"} {
		if err := v.RegisterValidation(tag, notBlank, true); err != nil {
			return nil, err
		}
	}
	if err := v.RegisterValidation("looseemail", looseEmail, true); err != nil {
		return nil, err
	}

	english := en.New()
	uni := ut.New(english, english)
	trans, found := uni.GetTranslator("en")
	if !found {
		return nil, errors.New("users: translator en not found")
	}
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, err
	}

	messages := map[string]string{
		"required_trimmed": "{0} is required",
		"notblank":         "{0} must not be empty",
		"looseemail":       "{0} must be a valid email address",
	}
	for tag, text := range messages {
		if err := registerMessage(v, trans, tag, text); err != nil {
			return nil, err
		}
	}

	return &Validator{validate: v, translator: trans}, nil
}

// MustNewValidator is like NewValidator but panics on error.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateCreate requires name and email and checks their format.
func (v *Validator) ValidateCreate(req CreateRequest) error {
	return v.check(req)
}

// ValidateUpdate checks only the fields present in req. An update with no
// fields passes; the caller decides whether that is an error.
func (v *Validator) ValidateUpdate(req UpdateRequest) error {
	return v.check(req)
}

func (v *Validator) check(payload any) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &ValidationError{Errors: make([]string, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Errors = append(verr.Errors, fe.Translate(v.translator))
	}
	return verr
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, text string) error {
	return v.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
		return ut.Add(tag, text, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(tag, fe.Field())
		return t
	})
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func looseEmail(fl validator.FieldLevel) bool {
	return emailPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

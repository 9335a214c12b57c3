package server

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const notBlankTag = "notblank"

// requestValidator validates request bodies and reports failures by JSON
// field name in plain English.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = v.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		},
	)

	return &requestValidator{validate: v, translator: translator}
}

// Struct validates s and returns the failing fields, or nil when s is valid.
func (rv *requestValidator) Struct(s any) map[string]string {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(rv.translator)
	}
	return fields
}

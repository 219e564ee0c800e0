package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// trans is the singleton English translator for validation errors.
var (
	trans     ut.Translator
	setupOnce sync.Once
)

// customTags are the domain enums validated by tag.
var customTags = []struct {
	tag     string
	valid   func(string) bool
	message string
}{
	{"tier", func(s string) bool { return model.Tier(s).Valid() }, "{0} must be one of easy, medium, hard"},
	{"question_kind", func(s string) bool { return model.QuestionKind(s).Valid() }, "{0} must be one of multiple_choice, fill_blank, short_answer"},
	{"event_type", func(s string) bool { return model.ProctoringEventType(s).Valid() }, "{0} is not a known proctoring event type"},
}

// Setup registers the validator with English translations and the domain tags
// on Gin's binding engine. Call once during application startup.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}
		if err := Register(v); err != nil {
			panic(err)
		}
	})
}

// Register configures v: JSON field names, English translations and the
// custom tags tier, question_kind and event_type.
func Register(v *govalidator.Validate) error {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return err
	}

	for _, ct := range customTags {
		valid := ct.valid
		if err := v.RegisterValidation(ct.tag, func(fl govalidator.FieldLevel) bool {
			return valid(fl.Field().String())
		}); err != nil {
			return err
		}
		tag, message := ct.tag, ct.message
		err := v.RegisterTranslation(tag, trans,
			func(u ut.Translator) error { return u.Add(tag, message, true) },
			func(u ut.Translator, fe govalidator.FieldError) string {
				t, _ := u.T(tag, fe.Field())
				return t
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name to human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

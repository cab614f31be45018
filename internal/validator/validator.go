package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/qbank-core/internal/domain"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// Setup registers the validator with English translations and the
// question-bank tags on Gin's binding engine. Call once during startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		Register(v)
	}
}

// Register configures v. It is separate from Setup so tests can use a
// private validator instance.
func Register(v *govalidator.Validate) {
	// Use the json, form or uri tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form", "uri"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation("question_type", func(fl govalidator.FieldLevel) bool {
		return domain.QuestionType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("question_status", func(fl govalidator.FieldLevel) bool {
		switch domain.QuestionStatus(fl.Field().String()) {
		case domain.StatusDraft, domain.StatusPublished, domain.StatusArchived:
			return true
		}
		return false
	})

	v.RegisterStructValidation(func(sl govalidator.StructLevel) {
		t := sl.Current().Interface().(domain.Taxonomy)
		if t.Difficulty.Level == "" {
			sl.ReportError(t.Difficulty.Level, "difficulty_level", "Difficulty", "required", "")
		}
	}, domain.Taxonomy{})

	// Register English translations.
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	registerTranslation(v, "question_type", "{0} must be one of MCQ, ESSAY, TRUE_FALSE")
	registerTranslation(v, "question_status", "{0} must be one of draft, published, archived")
}

func registerTranslation(v *govalidator.Validate, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, text, true) },
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		})
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
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

// BindQuery binds and validates the query string into dst.
func BindQuery(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindURI binds and validates the path parameters into dst.
func BindURI(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindUri(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

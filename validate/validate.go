package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

var ErrInvalidID = errors.New("ID is not in its proper form")

var validate *validator.Validate

var translator ut.Translator

func init() {

	validate = validator.New()

	// Messages name fields the way clients send them.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// id accepts a uuid in any letter case; NormalizeID turns it into the
	// form the database returns.
	validate.RegisterValidation("id", func(fl validator.FieldLevel) bool {
		return CheckID(fl.Field().String()) == nil
	})

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTranslation("id", translator, func(t ut.Translator) error {
		return t.Add("id", "{0} must be a valid ID", true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		msg, _ := t.T("id", fe.Field())
		return msg
	})
}

func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		if len(verrors) < 1 {
			return nil
		}

		return errors.New(verrors[0].Translate(translator))
	}

	return nil
}

func GenerateID() string {
	return uuid.NewString()
}

func CheckID(id string) error {
	_, err := NormalizeID(id)
	return err
}

// NormalizeID returns id in canonical lowercase form.
func NormalizeID(id string) (string, error) {
	if len(id) != 36 {
		return "", ErrInvalidID
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return u.String(), nil
}

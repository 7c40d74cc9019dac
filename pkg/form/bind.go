package form

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

// InvalidValueMessage is reported for fields whose raw value cannot be converted to the model's type.
const InvalidValueMessage = "Enter a valid value"

// Validator is implemented by form models with rules beyond type conversion.
// Validate is called on a successfully decoded model and adds messages to errs.
type Validator interface {
	Validate(errs Errors)
}

var quotedName = regexp.MustCompile(`'([^']*)'`)

// Bind decodes raw page data into a model of type F.
//
// Decoding is weakly typed so that submitted strings populate numeric and
// boolean fields. Conversion failures and Validator messages are returned
// together as Errors.
func Bind[F any](data domain.PageData) (F, error) {
	var model F
	errs := Errors{}

	if err := decode(data, &model); err != nil {
		var merr *mapstructure.Error
		if !errors.As(err, &merr) {
			return model, err
		}
		for _, msg := range merr.Errors {
			errs.Add(fieldOf(msg), InvalidValueMessage)
		}
		return model, errs
	}

	if v, ok := any(&model).(Validator); ok {
		v.Validate(errs)
	}
	return model, errs.Err()
}

// Decode converts stored page data into a model without running validation.
func Decode[F any](data domain.PageData) (F, error) {
	var model F
	err := decode(data, &model)
	return model, err
}

func decode(data domain.PageData, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       trimStrings,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]any(data))
}

func trimStrings(from reflect.Type, _ reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	return strings.TrimSpace(reflect.ValueOf(data).String()), nil
}

// fieldOf extracts the field name from a mapstructure error message.
// Nested names are reported by their top level field.
func fieldOf(msg string) string {
	m := quotedName.FindStringSubmatch(msg)
	if m == nil || m[1] == "" {
		return "form"
	}
	name := m[1]
	if i := strings.IndexAny(name, ".["); i > 0 {
		name = name[:i]
	}
	return name
}

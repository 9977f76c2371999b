package binding

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// FormParser binds url.Values to struct fields tagged `form:"name"`.
// Supported kinds: string, bool, signed and unsigned integers, floats and
// pointers to them. Missing values leave the field untouched.
type FormParser struct {
	tagName string
}

func NewFormParser() *FormParser {
	return &FormParser{tagName: "form"}
}

// Parse binds values to the struct pointed to by v.
func (fp *FormParser) Parse(values url.Values, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &BindError{
			Type:    "bind_error",
			Message: "v must be a non-nil pointer",
		}
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return &BindError{
			Type:    "bind_error",
			Message: "v must be a pointer to struct",
		}
	}

	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}
		name := fp.fieldName(rt.Field(i))
		if name == "-" {
			continue
		}
		raw, ok := values[name]
		if !ok || len(raw) == 0 {
			continue
		}
		value := strings.TrimSpace(raw[0])
		if value == "" {
			continue
		}
		if err := setValue(field, value); err != nil {
			return &BindError{
				Type:    "bind_error",
				Field:   name,
				Message: err.Error(),
			}
		}
	}
	return nil
}

func (fp *FormParser) fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get(fp.tagName); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return strings.ToLower(f.Name)
}

func setValue(field reflect.Value, value string) error {
	if field.Kind() == reflect.Ptr {
		ptr := reflect.New(field.Type().Elem())
		if err := setValue(ptr.Elem(), value); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("must be an integer, got %q", value)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("must be a non-negative integer, got %q", value)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("must be a number, got %q", value)
		}
		field.SetFloat(f)
	default:
		return &BindError{Type: "bind_error", Message: "unsupported field type " + field.Type().String()}
	}
	return nil
}

// parseBool accepts strconv.ParseBool values plus on/off and yes/no, as
// sent by HTML checkboxes.
func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("must be a boolean, got %q", value)
	}
	return b, nil
}

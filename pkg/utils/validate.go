package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误信息使用 json 字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

var errorMessages = map[string]string{
	"required": "The field '%s' is required.",
	"email":    "The field '%s' must be a valid email address.",
	"min":      "The field '%s' must be at least %s long.",
	"max":      "The field '%s' must be no longer than %s.",
	"len":      "The field '%s' must have exactly %s items.",
	"oneof":    "The field '%s' must be one of [%s].",
	"datetime": "The field '%s' must match the format %s.",
	"uuid":     "The field '%s' must be a UUID.",
}

func parseMessage(e validator.FieldError) string {
	field := e.Field()
	if msg, ok := errorMessages[e.Tag()]; ok {
		if strings.Count(msg, "%s") == 2 {
			return fmt.Sprintf(msg, field, e.Param())
		}
		return fmt.Sprintf(msg, field)
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", field, e.Tag())
}

// ValidateStruct 校验请求结构体，返回 json字段名 -> 友好错误信息；无错误时返回 nil
func ValidateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		// Namespace 形如 Request.member_ids[0]，去掉结构体名
		key := e.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		out[key] = parseMessage(e)
	}
	return out
}

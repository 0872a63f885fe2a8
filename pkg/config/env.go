package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

var durationType = reflect.TypeOf(time.Duration(0))

// applyEnvOverrides 按 env 标签用环境变量覆盖字段，解析失败的字段汇总返回
func applyEnvOverrides(v interface{}) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%w: env overrides need a non-nil pointer", ErrInvalidConfig)
	}
	return applyEnvToStruct(val.Elem())
}

func applyEnvToStruct(val reflect.Value) error {
	if val.Kind() != reflect.Struct {
		return nil
	}

	var errs error
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envVal, ok := os.LookupEnv(envKey); ok && envVal != "" {
				if err := setFieldValue(field, envVal); err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", envKey, err))
				}
			}
		}

		if field.Kind() == reflect.Struct {
			errs = multierr.Append(errs, applyEnvToStruct(field))
		}
	}
	return errs
}

func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w: %s", ErrUnsupportedValue, field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedValue, field.Kind())
	}
	return nil
}

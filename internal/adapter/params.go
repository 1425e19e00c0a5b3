// Package adapter is the Handler Adapter (C9): it decodes a collaborator
// handler's raw parameter map into a typed, per-operation struct,
// validates it against the core's enforced rules (spec §6), and
// dispatches into the matching protocol module, shaping the result as
// a uniform Envelope. It mirrors the teacher's own
// decode-then-call-then-encode adapter shape, generalized from "one
// wire dialect" to "one dispatch table per protocol operation."
package adapter

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/pocc/portofcall-sub006/internal/protocol/sane"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// CommonParams are the fields every operation accepts (spec §6):
// host/port identify the peer, timeout_ms bounds the whole operation.
type CommonParams struct {
	Host      string `json:"host" mapstructure:"host" validate:"required"`
	Port      uint16 `json:"port" mapstructure:"port" validate:"required,min=1,max=65535"`
	TimeoutMS uint32 `json:"timeout_ms" mapstructure:"timeout_ms"`
}

// Decode maps a raw parameter map (as handed in by the collaborator
// handler) onto target, a pointer to one operation's params struct.
// Unknown keys are rejected: a typo in a param name should surface as
// InvalidArgument, not silently vanish.
func Decode(raw map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		// A weak numeric decode into uint16 wraps silently (70000 -> 4464),
		// which would slip past the port's max tag; reject it here instead.
		DecodeHook: mapstructure.DecodeHookFuncType(func(_, to reflect.Type, data any) (any, error) {
			if to.Kind() != reflect.Uint16 {
				return data, nil
			}
			v := reflect.ValueOf(data)
			if (v.CanInt() && (v.Int() < 0 || v.Int() > math.MaxUint16)) ||
				(v.CanUint() && v.Uint() > math.MaxUint16) ||
				(v.CanFloat() && (v.Float() < 0 || v.Float() > math.MaxUint16)) {
				return nil, fmt.Errorf("%v is out of range for %s", data, to)
			}
			return data, nil
		}),
	})
	if err != nil {
		return result.InvalidArgument("build param decoder: %v", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return result.InvalidArgument("decode params: %v", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// deviceName enforces the SANE-specific rejection rules (spec §6):
	// no NUL, no "..", no leading "/" or "\", not exactly ".", <=255 bytes.
	// sane.ValidateDeviceName is the one and only place those rules are
	// expressed; the tag here just wires the validator framework to it
	// so a bad device name fails before a socket is ever opened.
	_ = v.RegisterValidation("devicename", func(fl validator.FieldLevel) bool {
		return sane.ValidateDeviceName(fl.Field().String()) == nil
	})
	return v
}

// Validate runs the struct tags on target (host/port ranges, length
// caps, device-name rules, ...) and turns the first failure into an
// InvalidArgument, matching spec §6: "the core enforces these, not the
// handler."
func Validate(target any) error {
	if err := validate.Struct(target); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return result.InvalidArgument("%s failed %q validation (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return result.InvalidArgument("validate params: %v", err)
	}
	return nil
}

// DecodeAndValidate is the common two-step entry point every operation
// handler calls before touching the network.
func DecodeAndValidate(raw map[string]any, target any) error {
	if err := Decode(raw, target); err != nil {
		return err
	}
	return Validate(target)
}

package builtin

import (
	"sigs.k8s.io/yaml"

	"github.com/polywasm/policyhost/internal/value"
)

// JSONYAMLGroup registers json/yaml marshal, unmarshal and validity checks.
// Marshaling reuses the canonical wire encoder directly; YAML conversion
// goes through sigs.k8s.io/yaml, a thin JSON-to-YAML bridge.
func JSONYAMLGroup(r *Registry) {
	r.Register("json.marshal", 1, builtinJSONMarshal)
	r.Register("json.unmarshal", 1, builtinJSONUnmarshal)
	r.Register("json.is_valid", 1, builtinJSONIsValid)
	r.Register("yaml.marshal", 1, builtinYAMLMarshal)
	r.Register("yaml.unmarshal", 1, builtinYAMLUnmarshal)
	r.Register("yaml.is_valid", 1, builtinYAMLIsValid)
}

func builtinJSONMarshal(_ *Context, args []value.Value) (value.Value, error) {
	enc, err := value.Encode(args[0])
	if err != nil {
		return value.Value{}, &Error{Code: FatalErr, Name: "json.marshal", Msg: err.Error()}
	}
	return value.String(enc), nil
}

func builtinJSONUnmarshal(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("json.unmarshal", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	v, decErr := value.Decode([]byte(s))
	if decErr != nil {
		return value.Value{}, parseErrorf("json.unmarshal", "%s", decErr)
	}
	return v, nil
}

func builtinJSONIsValid(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("json.is_valid", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	_, decErr := value.Decode([]byte(s))
	return value.Bool(decErr == nil), nil
}

func builtinYAMLMarshal(_ *Context, args []value.Value) (value.Value, error) {
	goVal, err := value.ToGo(args[0])
	if err != nil {
		return value.Value{}, &Error{Code: FatalErr, Name: "yaml.marshal", Msg: err.Error()}
	}
	bs, yamlErr := yaml.Marshal(goVal)
	if yamlErr != nil {
		return value.Value{}, &Error{Code: FatalErr, Name: "yaml.marshal", Msg: yamlErr.Error()}
	}
	return value.String(string(bs)), nil
}

func builtinYAMLUnmarshal(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("yaml.unmarshal", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	jsonBytes, convErr := yaml.YAMLToJSON([]byte(s))
	if convErr != nil {
		return value.Value{}, parseErrorf("yaml.unmarshal", "%s", convErr)
	}
	v, decErr := value.Decode(jsonBytes)
	if decErr != nil {
		return value.Value{}, parseErrorf("yaml.unmarshal", "%s", decErr)
	}
	return v, nil
}

func builtinYAMLIsValid(_ *Context, args []value.Value) (value.Value, error) {
	s, err := stringArg("yaml.is_valid", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	_, convErr := yaml.YAMLToJSON([]byte(s))
	return value.Bool(convErr == nil), nil
}

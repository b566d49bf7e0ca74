// Package dump renders info documents as YAML, JSON or TOML.
package dump

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/distroinfo"
	"github.com/hashicorp/distroinfo/value"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	YAML Format = "yaml"
	JSON Format = "json"
	TOML Format = "toml"
)

// ParseFormat accepts a format name, case insensitive, with "yml" as an
// alias of "yaml".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case YAML, JSON, TOML:
		return f, nil
	case "yml":
		return YAML, nil
	}
	return "", errors.Errorf("unknown dump format %q", s)
}

// Info writes the validated document of info.
func Info(w io.Writer, info *distroinfo.Info, f Format) error {
	return Document(w, info.Document(), f)
}

// Document writes doc in format f, keeping key order for YAML and JSON.
func Document(w io.Writer, doc *value.Map, f Format) error {
	var out []byte
	var err error
	switch f {
	case YAML:
		out, err = toYAML(doc)
	case JSON:
		out, err = toJSONPretty(doc)
	case TOML:
		out, err = toTOML(doc)
	default:
		return errors.Errorf("unknown dump format %q", f)
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(append(out, '\n')); err != nil {
		return errors.Wrap(err, "dump")
	}
	return nil
}

// toJSONPretty converts the document into an indented JSON object.
func toJSONPretty(doc *value.Map) ([]byte, error) {
	result, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "toJSONPretty")
	}
	return bytes.TrimSpace(result), nil
}

// toYAML converts the document into YAML.
func toYAML(doc *value.Map) ([]byte, error) {
	result, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "toYAML")
	}
	return bytes.TrimSpace(result), nil
}

// toTOML converts the document into TOML. TOML has no null, so null
// values are left out.
func toTOML(doc *value.Map) ([]byte, error) {
	buf := bytes.NewBuffer([]byte{})
	enc := toml.NewEncoder(buf)
	if err := enc.Encode(value.ToInterface(dropNulls(doc))); err != nil {
		return nil, errors.Wrap(err, "toTOML")
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func dropNulls(v value.Value) value.Value {
	switch t := v.(type) {
	case value.List:
		out := make(value.List, 0, len(t))
		for _, e := range t {
			if !value.IsNull(e) {
				out = append(out, dropNulls(e))
			}
		}
		return out
	case *value.Map:
		out := value.NewMap()
		t.Range(func(k string, e value.Value) bool {
			if !value.IsNull(e) {
				out.Set(k, dropNulls(e))
			}
			return true
		})
		return out
	}
	return v
}

// Package schema is the structural gate between untrusted generated content
// and typed domain data. Payloads are checked against a fixed Shape with a
// JSON Schema pass followed by the shape's cross-field rules; only payloads
// that pass both may be decoded into quiz types.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ValidationError reports the first violated field of a payload.
type ValidationError struct {
	Shape  string
	Path   string // dotted field path, "$" for the document root
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Shape, e.Path, e.Reason)
}

// printer renders jsonschema error kinds as English text.
var printer = message.NewPrinter(language.English)

// compiled caches compiled schemas by shape name.
var compiled sync.Map // map[string]*jsonschema.Schema

// Validate parses raw and checks it against s. It returns the parsed
// document on success and a *ValidationError otherwise.
func Validate(raw []byte, s *Shape) (any, error) {
	if s == nil {
		return nil, errors.New("schema: nil shape")
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &ValidationError{Shape: s.Name, Path: "$", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	sch, err := compile(s)
	if err != nil {
		return nil, err
	}

	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			out := fromSchemaError(ve)
			out.Shape = s.Name
			return nil, out
		}
		return nil, &ValidationError{Shape: s.Name, Path: "$", Reason: err.Error()}
	}

	if s.check != nil {
		if ve := s.check(doc); ve != nil {
			ve.Shape = s.Name
			return nil, ve
		}
	}

	return doc, nil
}

// fromSchemaError descends to the first leaf cause and converts it.
func fromSchemaError(ve *jsonschema.ValidationError) *ValidationError {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	loc := append([]string(nil), leaf.InstanceLocation...)
	if req, ok := leaf.ErrorKind.(*kind.Required); ok && len(req.Missing) > 0 {
		loc = append(loc, req.Missing[0])
	}

	path := "$"
	if len(loc) > 0 {
		path = strings.Join(loc, ".")
	}

	return &ValidationError{
		Path:   path,
		Reason: leaf.ErrorKind.LocalizedString(printer),
	}
}

func compile(s *Shape) (*jsonschema.Schema, error) {
	if cached, ok := compiled.Load(s.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants decoded JSON values, not Go literals.
	defBytes, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %q: %w", s.Name, err)
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", s.Name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", s.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add schema %q: %w", s.Name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", s.Name, err)
	}

	compiled.Store(s.Name, sch)
	return sch, nil
}

// asInt converts a decoded JSON number to int when it is integral and
// within int32 range.
func asInt(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			if i < math.MinInt32 || i > math.MaxInt32 {
				return 0, false
			}
			return int(i), true
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case int:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

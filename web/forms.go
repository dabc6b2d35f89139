package web

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/autoadmin/core/resource"
)

// Input layouts accepted from the edit form.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
)

// parseForm converts submitted values of the editable properties into
// params. Properties missing from the form are left out so that updates do
// not clear them. Conversion failures are reported as a ValidationError.
func parseForm(props []resource.Property, form url.Values) (resource.Params, *resource.ValidationError) {
	params := resource.Params{}
	verr := resource.NewValidationError(nil)

	for _, p := range props {
		values, ok := form[p.Path()]
		if !ok || len(values) == 0 {
			continue
		}
		// Checkboxes post a hidden "false" followed by "true" when checked.
		raw := values[len(values)-1]
		if p.Type() != resource.PropertyRichText && p.Type() != resource.PropertyTextarea {
			raw = strings.TrimSpace(raw)
		}

		v, err := convertInput(p, raw)
		if err != nil {
			verr.Add(p.Path(), "format", err.Error())
			continue
		}
		if _, ok := v.(skipValue); ok {
			continue
		}
		params[p.Path()] = v
	}

	if len(verr.PropertyErrors) > 0 {
		return params, verr
	}
	return params, nil
}

// skipValue marks an input that must not be written, e.g. an empty password.
type skipValue struct{}

type inputError string

func (e inputError) Error() string { return string(e) }

func convertInput(p resource.Property, raw string) (any, error) {
	switch p.Type() {
	case resource.PropertyPassword:
		if raw == "" {
			return skipValue{}, nil
		}
		return raw, nil
	case resource.PropertyBoolean:
		switch strings.ToLower(raw) {
		case "true", "on", "1", "yes":
			return true, nil
		case "", "false", "off", "0", "no":
			return false, nil
		}
		return nil, inputError("must be true or false")
	}

	if raw == "" {
		if p.Type() == resource.PropertyString || p.Type() == resource.PropertyTextarea ||
			p.Type() == resource.PropertyRichText {
			return "", nil
		}
		return nil, nil
	}

	switch p.Type() {
	case resource.PropertyNumber:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, inputError("must be a number")
		}
		return f, nil
	case resource.PropertyFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, inputError("must be a number")
		}
		return f, nil
	case resource.PropertyDate:
		t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return nil, inputError("must be a date (YYYY-MM-DD)")
		}
		return t, nil
	case resource.PropertyDateTime:
		t, err := time.ParseInLocation(dateTimeLayout, raw, time.UTC)
		if err != nil {
			if t, err = time.Parse(time.RFC3339, raw); err != nil {
				return nil, inputError("must be a date and time")
			}
		}
		return t, nil
	case resource.PropertyMixed:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, inputError("must be valid JSON")
		}
		return v, nil
	}
	return raw, nil
}

package input

import (
	"net/http"
	"os"

	"github.com/nojima/dashreq/exchange"
	"github.com/nojima/dashreq/internal/json"
	"github.com/pkg/errors"
)

// BuildRequest reads the files the input refers to and turns it into an
// exchange.Request.
func BuildRequest(in *Input) (*exchange.Request, error) {
	header, err := buildHeader(in.Header)
	if err != nil {
		return nil, err
	}
	body, err := buildBody(in.Body)
	if err != nil {
		return nil, err
	}
	return &exchange.Request{
		Method: exchange.Method(in.Method),
		Path:   in.Path,
		Query:  buildQuery(in.Parameters),
		Header: header,
		Body:   body,
	}, nil
}

func buildQuery(parameters []Field) map[string]any {
	if len(parameters) == 0 {
		return nil
	}
	values := make(map[string][]string)
	for _, field := range parameters {
		values[field.Name] = append(values[field.Name], field.Value)
	}
	query := make(map[string]any, len(values))
	for name, v := range values {
		if len(v) == 1 {
			query[name] = v[0]
		} else {
			query[name] = v
		}
	}
	return query
}

func buildHeader(header Header) (http.Header, error) {
	h := make(http.Header)
	for _, field := range header.Fields {
		value, err := resolveFieldValue(field)
		if err != nil {
			return nil, err
		}
		h.Add(field.Name, value)
	}
	return h, nil
}

func buildBody(body Body) (any, error) {
	switch body.BodyType {
	case EmptyBody:
		return nil, nil
	case JSONBody:
		return buildJSONBody(body)
	case FormBody:
		return buildFormBody(body)
	case RawBody:
		return &exchange.File{ContentType: "application/json", Data: body.Raw}, nil
	default:
		return nil, errors.Errorf("unknown body type: %v", body.BodyType)
	}
}

func buildJSONBody(body Body) (map[string]any, error) {
	obj := make(map[string]any)
	for _, field := range body.Fields {
		value, err := resolveFieldValue(field)
		if err != nil {
			return nil, err
		}
		obj[field.Name] = value
	}
	for _, field := range body.RawJSONFields {
		value, err := resolveFieldValue(field)
		if err != nil {
			return nil, err
		}
		if !json.Valid([]byte(value)) {
			return nil, errors.Errorf("invalid JSON at '%s': %s", field.Name, value)
		}
		obj[field.Name] = json.RawMessage(value)
	}
	return obj, nil
}

func buildFormBody(body Body) (*exchange.Form, error) {
	form := &exchange.Form{}
	for _, field := range body.Fields {
		value, err := resolveFieldValue(field)
		if err != nil {
			return nil, err
		}
		form.AddField(field.Name, value)
	}
	for _, field := range body.Files {
		if !field.IsFile {
			form.AddFile(field.Name, &exchange.File{Name: field.Name, Data: []byte(field.Value)})
			continue
		}
		file, err := exchange.OpenFile(field.Value)
		if err != nil {
			return nil, err
		}
		form.AddFile(field.Name, file)
	}
	return form, nil
}

func resolveFieldValue(field Field) (string, error) {
	if !field.IsFile {
		return field.Value, nil
	}
	b, err := os.ReadFile(field.Value)
	if err != nil {
		return "", errors.Wrapf(err, "reading field value from file '%s'", field.Value)
	}
	return string(b), nil
}

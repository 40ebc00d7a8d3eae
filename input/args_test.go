package input

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	testCases := []struct {
		title         string
		args          []string
		expectedInput *Input
		shouldBeError bool
	}{
		{
			title: "Happy case",
			args:  []string{"GET", "/hello"},
			expectedInput: &Input{
				Method: Method("GET"),
				Path:   "/hello",
			},
		},
		{
			title: "Path without slash",
			args:  []string{"items/7"},
			expectedInput: &Input{
				Method: Method("GET"),
				Path:   "/items/7",
			},
		},
		{
			title: "Absolute URL",
			args:  []string{"delete", "https://api.example.com/items/7?force=true"},
			expectedInput: &Input{
				Method:  Method("DELETE"),
				BaseURL: "https://api.example.com",
				Path:    "/items/7?force=true",
			},
		},
		{
			title: "Method is guessed from body",
			args:  []string{"/items", "name=widget"},
			expectedInput: &Input{
				Method: Method("POST"),
				Path:   "/items",
				Body: Body{
					BodyType: JSONBody,
					Fields:   []Field{{Name: "name", Value: "widget"}},
				},
			},
		},
		{
			title:         "Invalid method",
			args:          []string{"GET/POST", "/hello"},
			shouldBeError: true,
		},
		{
			title:         "Path missing",
			args:          []string{},
			shouldBeError: true,
		},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			in, err := ParseArgs(tt.args, strings.NewReader(""), &Options{})
			if (err != nil) != tt.shouldBeError {
				t.Errorf("unexpected error: shouldBeError=%v, err=%v", tt.shouldBeError, err)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(in, tt.expectedInput) {
				t.Errorf("unexpected input: expected=%+v, actual=%+v", tt.expectedInput, in)
			}
		})
	}
}

func TestParseArgs_Stdin(t *testing.T) {
	// Exercise
	in, err := ParseArgs([]string{"PUT", "/items/7"}, strings.NewReader(`{"a": 1}`), &Options{ReadStdin: true})
	if err != nil {
		t.Fatalf("unexpected error: err=%+v", err)
	}

	// Verify
	if in.Body.BodyType != RawBody || string(in.Body.Raw) != `{"a": 1}` {
		t.Errorf("unexpected body: %+v", in.Body)
	}

	// Mixing stdin with items fails
	_, err = ParseArgs([]string{"/items", "a=b"}, strings.NewReader("x"), &Options{ReadStdin: true})
	if err == nil {
		t.Errorf("expected an error when mixing stdin and body items")
	}
}

func TestParseItem(t *testing.T) {
	testCases := []struct {
		title                     string
		input                     string
		form                      bool
		expectedBodyFields        []Field
		expectedBodyRawJSONFields []Field
		expectedFiles             []Field
		expectedHeaderFields      []Field
		expectedParameters        []Field
		shouldBeError             bool
	}{
		{
			title:              "Data field",
			input:              "hello=world",
			expectedBodyFields: []Field{{Name: "hello", Value: "world"}},
		},
		{
			title:              "Data field with empty value",
			input:              "hello=",
			expectedBodyFields: []Field{{Name: "hello", Value: ""}},
		},
		{
			title:              "Data field from file",
			input:              "hello=@world.txt",
			expectedBodyFields: []Field{{Name: "hello", Value: "world.txt", IsFile: true}},
		},
		{
			title:                     "Raw JSON field",
			input:                     `hello:=[1, true, "world"]`,
			expectedBodyRawJSONFields: []Field{{Name: "hello", Value: `[1, true, "world"]`}},
		},
		{
			title:         "Raw JSON field with invalid JSON",
			input:         `hello:={invalid: JSON}`,
			shouldBeError: true,
		},
		{
			title:         "Raw JSON field in form",
			input:         `hello:=1`,
			form:          true,
			shouldBeError: true,
		},
		{
			title:                "Header field",
			input:                "X-Example:Sample Value",
			expectedHeaderFields: []Field{{Name: "X-Example", Value: "Sample Value"}},
		},
		{
			title:                "Header field with empty value",
			input:                "X-Example:",
			expectedHeaderFields: []Field{{Name: "X-Example", Value: ""}},
		},
		{
			title:         "Invalid header field name",
			input:         `Bad"header":test`,
			shouldBeError: true,
		},
		{
			title:              "URL parameter",
			input:              "hello==world",
			expectedParameters: []Field{{Name: "hello", Value: "world"}},
		},
		{
			title:              "URL parameter with empty value",
			input:              "hello==",
			expectedParameters: []Field{{Name: "hello", Value: ""}},
		},
		{
			title:         "Form file",
			input:         "avatar@me.png",
			form:          true,
			expectedFiles: []Field{{Name: "avatar", Value: "me.png", IsFile: true}},
		},
		{
			title:         "Form file without --form",
			input:         "avatar@me.png",
			shouldBeError: true,
		},
		{
			title:         "Unknown item",
			input:         "nothing",
			shouldBeError: true,
		},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			in := Input{}
			st := state{preferredBodyType: JSONBody}
			if tt.form {
				st.preferredBodyType = FormBody
			}
			err := parseItem(tt.input, strings.NewReader(""), &st, &in)
			if (err != nil) != tt.shouldBeError {
				t.Errorf("unexpected error: shouldBeError=%v, err=%v", tt.shouldBeError, err)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(in.Body.Fields, tt.expectedBodyFields) {
				t.Errorf("unexpected body field: expected=%+v, actual=%+v", tt.expectedBodyFields, in.Body.Fields)
			}
			if !reflect.DeepEqual(in.Body.RawJSONFields, tt.expectedBodyRawJSONFields) {
				t.Errorf("unexpected raw JSON body field: expected=%+v, actual=%+v", tt.expectedBodyRawJSONFields, in.Body.RawJSONFields)
			}
			if !reflect.DeepEqual(in.Body.Files, tt.expectedFiles) {
				t.Errorf("unexpected files: expected=%+v, actual=%+v", tt.expectedFiles, in.Body.Files)
			}
			if !reflect.DeepEqual(in.Header.Fields, tt.expectedHeaderFields) {
				t.Errorf("unexpected header field: expected=%+v, actual=%+v", tt.expectedHeaderFields, in.Header.Fields)
			}
			if !reflect.DeepEqual(in.Parameters, tt.expectedParameters) {
				t.Errorf("unexpected parameters: expected=%+v, actual=%+v", tt.expectedParameters, in.Parameters)
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	testCases := []struct {
		title        string
		input        string
		expectedBase string
		expectedPath string
		shouldBeErr  bool
	}{
		{title: "Relative path", input: "/hello/world", expectedPath: "/hello/world"},
		{title: "No leading slash", input: "hello", expectedPath: "/hello"},
		{title: "Absolute URL", input: "http://example.com/hello/world", expectedBase: "http://example.com", expectedPath: "/hello/world"},
		{title: "Absolute URL with port and query", input: "https://example.com:8443/?q=hello&lang=ja", expectedBase: "https://example.com:8443", expectedPath: "/?q=hello&lang=ja"},
		{title: "No path", input: "https://example.com", expectedBase: "https://example.com", expectedPath: "/"},
		{title: "No host", input: "http:///hello", shouldBeErr: true},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			base, path, err := parsePath(tt.input)
			if (err != nil) != tt.shouldBeErr {
				t.Fatalf("unexpected error: shouldBeErr=%v, err=%v", tt.shouldBeErr, err)
			}
			if base != tt.expectedBase {
				t.Errorf("unexpected base URL: expected=%v, actual=%v", tt.expectedBase, base)
			}
			if path != tt.expectedPath {
				t.Errorf("unexpected path: expected=%v, actual=%v", tt.expectedPath, path)
			}
		})
	}
}

package api

import (
	"context"
	"net/http"

	"github.com/nojima/dashreq/exchange"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func jsonHeader() http.Header {
	return http.Header{"Content-Type": []string{"application/json"}}
}

// GraphQL posts query to the GraphQL endpoint. A 200 response may still
// carry errors; see GraphQLErrors.
func (c *Client) GraphQL(ctx context.Context, query string, variables map[string]any) *exchange.Response {
	body, err := sjson.SetBytes([]byte(`{}`), "query", query)
	if err == nil && len(variables) > 0 {
		body, err = sjson.SetBytes(body, "variables", variables)
	}
	if err != nil {
		return exchange.FailedResponse(http.MethodPost, c.cfg.GraphQLPath, errors.Wrap(err, "building GraphQL payload"))
	}
	return c.Request(ctx, &exchange.Request{
		Method: exchange.MethodPost,
		Path:   c.cfg.GraphQLPath,
		Header: jsonHeader(),
		Body:   body,
	})
}

// GraphQLErrors returns the messages of the errors array of a GraphQL
// response body.
func GraphQLErrors(resp *exchange.Response) []string {
	raw, err := resp.Bytes()
	if err != nil || len(raw) == 0 {
		return nil
	}
	var messages []string
	for _, m := range gjson.GetBytes(raw, "errors.#.message").Array() {
		messages = append(messages, m.String())
	}
	return messages
}

// SQL posts statement with positional params to the SQL passthrough
// endpoint.
func (c *Client) SQL(ctx context.Context, statement string, params ...any) *exchange.Response {
	if params == nil {
		params = []any{}
	}
	body, err := sjson.SetBytes([]byte(`{}`), "query", statement)
	if err == nil {
		body, err = sjson.SetBytes(body, "params", params)
	}
	if err != nil {
		return exchange.FailedResponse(http.MethodPost, c.cfg.SQLPath, errors.Wrap(err, "building SQL payload"))
	}
	return c.Request(ctx, &exchange.Request{
		Method: exchange.MethodPost,
		Path:   c.cfg.SQLPath,
		Header: jsonHeader(),
		Body:   body,
	})
}

package sparql

import (
	"context"
	"fmt"
	"strings"

	"github.com/ross-spencer/spargo/pkg/spargo"
)

// Client runs SPARQL queries for query-backed origins and serializes the
// result rows into tab-separated text the extraction rules match against:
// one line per binding, columns in the query's variable order.
type Client struct {
	agent string
}

// NewClient creates a query client identifying as agent.
func NewClient(agent string) *Client {
	return &Client{agent: agent}
}

// Run executes query against endpoint and returns the serialized rows.
func (c *Client) Run(ctx context.Context, endpoint, query string) (result string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The underlying client reports transport failures by panicking.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sparql query against %s: %v", endpoint, r)
		}
	}()

	client := spargo.SPARQLClient{}
	client.ClientInit(endpoint, query)
	if c.agent != "" {
		client.SetUserAgent(c.agent)
	}

	response := client.SPARQLGo()
	return serialize(response), nil
}

// serialize flattens bindings to one tab-separated line per row.
func serialize(response spargo.SPARQLResult) string {
	vars, _ := response.Head["vars"].([]interface{})
	var out strings.Builder

	for _, binding := range response.Results.Bindings {
		columns := make([]string, 0, len(vars))
		for _, v := range vars {
			name, _ := v.(string)
			columns = append(columns, binding[name].Value)
		}
		out.WriteString(strings.Join(columns, "\t"))
		out.WriteByte('\n')
	}

	return out.String()
}

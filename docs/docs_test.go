package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerDocument(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	tests := []struct {
		path   string
		method string
	}{
		{path: "/api/orders", method: "post"},
		{path: "/api/orders", method: "get"},
		{path: "/api/orders/status/{status}", method: "get"},
		{path: "/api/orders/{ref}/payments", method: "post"},
		{path: "/api/orders/{ref}/status", method: "patch"},
		{path: "/api/orders/{ref}/confirm", method: "post"},
		{path: "/webhooks/gateway/payment", method: "post"},
	}
	for _, test := range tests {
		t.Run(test.method+" "+test.path, func(t *testing.T) {
			require.Contains(t, doc.Paths, test.path)
			assert.Contains(t, doc.Paths[test.path], test.method)
		})
	}
}

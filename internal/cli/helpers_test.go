package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ledgerArgs returns global flags pointing at a fresh JSON-formatted ledger.
func ledgerArgs(t *testing.T, backend string) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger")
	return []string{"--backend", backend, "--db", path, "--format", "json", "--identity", "Org1MSP"}
}

type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// decodeResponse parses a JSON CLI response and decodes its data into v.
func decodeResponse(t *testing.T, out string, v interface{}) rawResponse {
	t.Helper()
	var resp rawResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if v != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp
}

func run(t *testing.T, global []string, args ...string) (string, error) {
	t.Helper()
	return execute(t, append(append([]string{}, global...), args...)...)
}

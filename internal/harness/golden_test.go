package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// To regenerate golden files:
//
//	go test ./internal/harness -run TestGolden -update
func TestGolden_AssetProcessLifecycle(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/asset_process_lifecycle.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGolden_StatusPolicy(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/status_policy.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalSnapshot_SortedAndTerminated(t *testing.T) {
	data, err := MarshalSnapshot(TraceSnapshot{
		Scenario: "s",
		Trace: []TraceEvent{
			{Step: 0, Op: "seed", Result: map[string]interface{}{"b": 1.0, "a": "x"}},
		},
	})
	require.NoError(t, err)

	want := `{
  "scenario": "s",
  "trace": [
    {
      "step": 0,
      "op": "seed",
      "result": {
        "a": "x",
        "b": 1
      }
    }
  ]
}
`
	assert.Equal(t, want, string(data))
}

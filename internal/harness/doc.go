// Package harness runs YAML conformance scenarios against a fresh ledger.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	identity: Org1MSP            # submitter for every step (optional)
//	ids: ["0001", "0002"]        # ids handed to DID_/PID_ generation (optional)
//	steps:
//	  - op: create_asset
//	    args: { id: doc001, fileName: a.pdf, fileHash: "0abc", createdBy: user001 }
//	  - op: remove_item
//	    as: auditor                # per-step submitter override
//	    args: { processID: proc001, itemID: "9" }
//	    expect:
//	      error: ITEM_NOT_FOUND
//	assertions:
//	  - type: final_state
//	    key: proc001
//	    expect: { TotalItems: 10 }
//	  - type: history_count
//	    key: proc001
//	    count: 3
//
// # Assertion Types
//
//   - final_state: decodes the live value under key and subset-matches fields
//   - absent: the key has no live value
//   - history_count: the key's history has exactly count entries
//   - trace_count: op appears exactly count times in the trace
//
// # Deterministic Testing
//
// Every scenario runs against its own in-memory SQLite ledger with a
// deterministic document clock (testutil.DeterministicClock, one second per
// reading) and a fixed id sequence, so traces are byte-identical across runs
// and can be compared against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/lifecycle.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness

// Package harness provides scenario testing for query-sets.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	models: ../models              # CUE model directory
//	schema_file: ../schema/app.sql # optional SQL script
//	schema:                        # optional extra DDL
//	  - CREATE INDEX person_age ON person (age)
//	fixtures:                      # optional rows, inserted in order
//	  - table: person
//	    rows:
//	      - { id: 1, name: Ann, age: 34 }
//	steps:
//	  - name: adults
//	    model: Person
//	    chain:
//	      - filter: { age__gte: 18 }
//	      - exclude: { status: banned }
//	      - order_by: [-created]
//	      - limit: [0, 10]
//	    op: count
//	    expect:
//	      count: 5
//	      queries: 1
//
// # Operations
//
// count, size, exists, at (args.index), get (args.lookups), values and
// values_list (args.fields), update (args.set), remove and iterate.
//
// # Expectations
//
//   - count: scalar result, or number of rows for list results
//   - exists: result of exists
//   - rows: rows compared in canonical JSON form
//   - error: an error kind such as does_not_exist, or a message substring
//   - queries: number of statements the step sent
//
// # Deterministic Testing
//
// Every scenario runs in its own in-memory SQLite database, and the
// statement trace carries sequence numbers local to the run, so traces
// are identical across runs for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/people.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness

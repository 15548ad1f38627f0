// Package harness runs YAML search scenarios as executable contract tests.
//
// Each scenario runs against a fresh in-memory store: the catalog is
// loaded from CUE, records are imported, then every search is compiled
// and executed in order and checked against its expect clause.
//
// # Scenario Format
//
//	name: evens
//	description: "Where keeps even integers"
//	catalog:
//	  - ../models.cue
//	binary_scope: isolated
//	records:
//	  - type: DataModel
//	    items:
//	      - {Integer: 1, Boolean: false}
//	      - {Integer: 2, Boolean: true}
//	searches:
//	  - name: even
//	    search:
//	      Type: {TypeName: DataModel}
//	      Expressions:
//	        - FunctionName: Where
//	          Arguments: [...]
//	    expect:
//	      result_type: IQueryable<DataModel>
//	      count: 1
//	      result: [...]
//	  - name: typo
//	    search: '{"Type": ...}'
//	    expect:
//	      error: MEMBER_NOT_FOUND
//	assertions:
//	  - type: audit_count
//	    status: ok
//	    count: 1
//
// A search is either wire JSON text or the same document written as YAML.
// Catalog and record file paths are relative to the scenario file.
//
// # Assertion Types
//
//   - audit_count: the audit log holds count entries, optionally only
//     those with the given status
//   - same_fingerprint: the named searches share a fingerprint
//   - record_count: the store holds count records of record_type
package harness

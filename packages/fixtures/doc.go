// Package fixtures loads YAML definitions of modules, cases and suites and
// stores them through a repository.
//
// It provides functionality for:
//   - Reading fixture documents through an afero filesystem
//   - Validating names and cross references before anything is written
//   - Resolving suite items by case, module or suite name
//   - Loading a single case definition for debug runs
//
// Example document:
//
//	variables:
//	  base: http://localhost:8000
//	modules:
//	  - name: auth
//	cases:
//	  - name: login
//	    module: auth
//	    method: POST
//	    url: "{{base}}/login"
//	    content_type: json
//	    body: {user: ada}
//	    extract_rules: {token: $.data.token}
//	    assertions:
//	      - {check: status_code, comparator: equals, expect: 200}
//	suites:
//	  - name: smoke
//	    items:
//	      - module: auth
//	      - case: login
//	        order: 0
package fixtures

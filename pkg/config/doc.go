/*
Package config loads patch plan files and turns them into plans.

	            +-------------+
	            |   Config    |
	            | (files[])   |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   JSON   | |   HCL    |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Parses .yaml, .yml, .json and .hcl plan files; unknown fields are errors
- Checks the file's shape (one pattern per match, known actions, counts)
- Resolves paths against the root and expands doublestar globs
- Builds a plan.Plan, which does the remaining checks against disk

📄 Format:

	root: .
	files:
	  - path: internal/models/models.go
	    rules:
	      - id: add-field
	        action: insert_before
	        match:
	          block: { start: "type Foo struct {", end: "}" }
	        payload: "    NewField string\n"
	        verify:
	          syntax: go

expect is a whole number, "any" or "none". Omitted means exactly one.

🔍 Example:

	cfg, err := config.Load(ctx, ".patchrc.yaml")
	if err != nil {
		return err
	}

	p, err := cfg.Plan(ctx, status.New(status.Config{}))
	if err != nil {
		return err
	}
*/
package config

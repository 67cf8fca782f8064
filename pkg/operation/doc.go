/*
Package operation applies a validated plan to the file system.

	+-------------+
	|  Executor   |
	| (Core Logic)|
	+------+------+
	       |
	+------+------+
	|   Runner    |
	| (one file   |
	|  per job)   |
	+------+------+
	       |
	+------+------+
	|   Status    |
	| (file I/O)  |
	+-------------+

🎯 Purpose:
- Runs each target file through its own state machine
- Evaluates the file's rules in declared order against one in-memory buffer
- Commits a file only when every one of its rules succeeded

🔄 Flow for one file:
1. Lock the file (skipped in dry runs)
2. Load it (Loaded); a missing file starts empty for create targets
3. Evaluate rules in order (Applying); the first failure stops the file
4. Re-read to make sure nobody else changed it, then stage and rename (Committed)
5. On any failure, discard everything (RolledBack)

⚡ Guarantees:
- All or nothing within a file, best effort across files
- Files never share a buffer, so they run in parallel without locks
- The report lists files and rules in plan order whatever the concurrency
- An Applied outcome means the edit is on disk, or would be in a dry run

🔍 Example:

	exec, err := operation.New(operation.Options{
		Files:       status.New(status.Config{}),
		Concurrency: 4,
	})
	if err != nil {
		return err
	}

	rep, err := exec.Run(ctx, p)
	if err != nil {
		return err
	}
	if !rep.OK() {
		rep.Diagnostics(os.Stderr)
	}
*/
package operation

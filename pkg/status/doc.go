/*
Package status is the file system boundary for patchrc.

	            +-------------+
	            |   Status    |
	            |  (Storage)  |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+----+
	|   Files   |           | Format  |
	| (Storage) |           | (UI/UX) |
	+-----------+           +---------+

🎯 Purpose:
- Reads target files with a bounded timeout
- Writes new content atomically (temp file, fsync, rename)
- Serializes concurrent runs with advisory locks
- Names the lifecycle states a file moves through

🔄 Lifecycle of one target file:

	Loaded -> Applying -> Committed
	                   \-> RolledBack

A file is only ever replaced by renaming a fully written, synced temp file
over it, so a crash at any point leaves either the old or the new content.

⚡ Key Responsibilities:
- FileManager: Read, Stage, Commit, Discard, Lock
- FileState: the per-file state machine
- FileFormatter: emoji summaries for results and progress
- FormatFileLine: aligned console lines

🔍 Example:

	files := status.New(status.Config{})

	unlock, err := files.Lock(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	staged, err := files.Stage(ctx, path, content)
	if err != nil {
		return err
	}
	if err := files.Commit(ctx, staged); err != nil {
		return err
	}
*/
package status

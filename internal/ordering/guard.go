package ordering

import "github.com/roach88/ordset/internal/dberr"

// RequireSave rejects an index-maintained bulk mutation that would not be
// saved. Reindexing many rows needs intermediate writes inside one
// transaction, so it cannot be deferred to a later commit.
//
// Call it before any I/O.
func RequireSave(bulk, willSave bool) error {
	if bulk && !willSave {
		return dberr.Programmer("bulk", "index-maintained bulk mutation requires save")
	}
	return nil
}

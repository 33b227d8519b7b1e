package postgresql

// migrations returns the ordered schema migrations for the parties store.
// The full party state lives in a single JSONB column; status, created_at and
// updated_at are projected out for querying.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS parties (
				party_id   TEXT PRIMARY KEY,
				state      JSONB NOT NULL,
				status     TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_parties_status ON parties (status);
		`,
	}
}

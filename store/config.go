package store

// Config holds configuration for the Store.
type Config struct {
	// UsersTable is the name of the users table.
	// Default: "users"
	UsersTable string

	// UniqueTable is the name of the email claim table.
	// Default: "users_email_claims"
	UniqueTable string

	// MaxAttempts bounds retries of transactions cancelled by a
	// TransactionConflict and of read-then-transact operations whose guarded
	// item changed in between.
	// Default: 3
	MaxAttempts int
}

// DefaultConfig returns the default table names.
func DefaultConfig() Config {
	return Config{
		UsersTable:  "users",
		UniqueTable: "users_email_claims",
		MaxAttempts: 3,
	}
}

// validate fills in defaults for empty or out-of-range values.
func (c *Config) validate() {
	if c.UsersTable == "" {
		c.UsersTable = "users"
	}
	if c.UniqueTable == "" {
		c.UniqueTable = "users_email_claims"
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.MaxAttempts > 10 {
		c.MaxAttempts = 10
	}
}

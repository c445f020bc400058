// Package changelog holds the Liquibase-shaped output types (Changelog,
// Changeset, CypherChange) that the mapper, diff and mapping converters
// build, plus the INI changeset-id sequence and the error kinds a
// conversion can fail with.
package changelog

// CypherChange is one changeset's forward Cypher text, with an optional
// rollback text for reversing it.
type CypherChange struct {
	Text         string
	RollbackText string
}

// HasRollback reports whether this change carries a rollback statement.
func (c CypherChange) HasRollback() bool { return c.RollbackText != "" }

// Changeset is one numbered, attributed unit of change in a Changelog.
type Changeset struct {
	ID        string
	Author    string
	RunAlways bool
	Change    CypherChange
}

// Changelog is an ordered list of changesets.
type Changelog struct {
	Changesets []Changeset
}

// Add appends a changeset to the changelog.
func (c *Changelog) Add(cs Changeset) {
	c.Changesets = append(c.Changesets, cs)
}

// Len returns the number of changesets in the changelog.
func (c *Changelog) Len() int { return len(c.Changesets) }

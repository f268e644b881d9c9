package model

import "time"

// Environment selects one of the fixed KSeF deployments
type Environment string

const (
	EnvProd Environment = "prod"
	EnvTest Environment = "test"
	EnvDemo Environment = "demo"
)

// BaseURL returns the API base URL for the environment. Unknown values fall
// back to the test deployment, matching how entities without an explicit
// environment behave.
func (e Environment) BaseURL() string {
	switch e {
	case EnvProd:
		return "https://ksef.mf.gov.pl/api"
	case EnvDemo:
		return "https://ksef-demo.mf.gov.pl/api"
	default:
		return "https://ksef-test.mf.gov.pl/api"
	}
}

// Entity is one owning company synced against KSeF. The session token and
// its expiry live on the entity row and are overwritten after each
// authentication; the pipeline assumes at most one active run per entity.
type Entity struct {
	ID             int64       `db:"id"`
	Name           string      `db:"name"`
	TaxID          string      `db:"tax_id"`
	KsefIdentifier string      `db:"ksef_identifier"`
	KsefToken      string      `db:"ksef_token"`
	KsefTokenExp   *time.Time  `db:"ksef_token_expiry"`
	KsefEnv        Environment `db:"ksef_environment"`
	IsActive       bool        `db:"is_active"`
}

// HasValidToken reports whether the stored session token can still be used
func (e *Entity) HasValidToken(now time.Time) bool {
	if e.KsefToken == "" || e.KsefTokenExp == nil {
		return false
	}
	return now.Before(*e.KsefTokenExp)
}

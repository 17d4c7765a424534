package credentials

// Credential is one user credential record used to request a token from the
// remote endpoints. Records are immutable once loaded.
type Credential struct {
	UID      string `json:"uid" toml:"uid"`
	Password string `json:"password" toml:"password"`
}

// File is the on-disk credential list for a single server key.
type File struct {
	Version     int          `toml:"version"`
	Credentials []Credential `toml:"credentials"`
}

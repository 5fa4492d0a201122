package credentials

// File is the on-disk layout of credentials.toml.
type File struct {
	Version int                    `toml:"version"`
	Tokens  map[string]StoredToken `toml:"tokens"`
}

// StoredToken is a saved API token for one provider.
type StoredToken struct {
	Token string `toml:"token"`
}

// Source tells where a resolved token came from.
type Source string

const (
	SourceNone Source = ""
	SourceEnv  Source = "env"
	SourceFile Source = "file"
)

package interfaces

// PasswordHasher produces and verifies one-way salted password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil when password matches hash.
	Compare(hash, password string) error
}

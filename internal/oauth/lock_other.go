//go:build !unix

package oauth

// lockFile is a no-op where flock is unavailable; the Store mutex still
// serializes access within the process.
func lockFile(path string) (func(), error) {
	return func() {}, nil
}

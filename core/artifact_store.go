package core

// LatestVersion selects the most recent stored version when passed to
// ArtifactStore.Get.
const LatestVersion = -1

// ArtifactStore defines the interface for versioned artifact persistence.
// Implementations should be thread-safe and scope artifacts by session
// identifier. Save never overwrites: each call appends a new version and
// returns its number (starting at 1). Get with LatestVersion (or any negative
// version) resolves the newest one.
type ArtifactStore interface {
	Save(sessionID, name string, data []byte) (int, error)
	Get(sessionID, name string, version int) ([]byte, error)
	List(sessionID string) ([]string, error)
	Versions(sessionID, name string) ([]int, error)
	Delete(sessionID, name string) error
}

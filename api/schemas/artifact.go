package schemas

// Artifact is one unit of scanning: a path and its raw content. Artifacts are
// produced by a corpus provider; the engine borrows them read-only and never
// retains the content past the scan of that artifact.
type Artifact struct {
	Path    string
	Content []byte
}

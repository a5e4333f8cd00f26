package port

// LayoutHints carries structural hints from the document reader alongside
// the extracted text.
type LayoutHints struct {
	PageCount int
	Encoding  string
}

// ReadResult is the output of a DocumentReader.
type ReadResult struct {
	Text  string
	Hints LayoutHints
}

// DocumentReader converts raw payload bytes into page text plus layout
// hints. PDF byte extraction is a collaborator behind this interface;
// implementations fail with domain.ErrUnreadableDocument on corrupt input,
// which the pipeline treats the same as a structural parse failure.
type DocumentReader interface {
	Read(raw []byte) (*ReadResult, error)
}

package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for pipeline job identifiers.
	FieldJobID = "job_id"
	// FieldOwner is the standardized structured logging key for the namespace a job belongs to.
	FieldOwner = "owner"
	// FieldChapter is the standardized structured logging key for 1-based chapter indices.
	FieldChapter = "chapter"
	// FieldKey is the standardized structured logging key for object store keys.
	FieldKey = "key"
	// FieldVoice is the standardized structured logging key for synthesis voice names.
	FieldVoice = "voice"
	// FieldBackend is the standardized structured logging key for the synthesis backend in use.
	FieldBackend = "backend"
)

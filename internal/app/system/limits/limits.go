// internal/app/system/limits/limits.go
package limits

// Request body and content size limits.
const (
	// MaxJSONBody is the default cap on a decoded JSON request body.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxDocumentContent bounds a document's content after sanitizing.
	MaxDocumentContent = 1 << 20 // 1 MB

	// MaxDocumentBody leaves room for JSON escaping of a full document.
	MaxDocumentBody = 4 << 20 // 4 MB

	// MaxSyncBody caps a push batch; change payloads are opaque JSON.
	MaxSyncBody = 4 << 20 // 4 MB

	// MaxMessageChars is the longest message body in characters.
	MaxMessageChars = 5000
)

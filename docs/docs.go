// Package docs registers the OpenAPI documents served by echo-swagger at
// /swagger/*. The auth service and the notes API each have their own swag
// instance.
package docs

const (
	AuthInstance  = "auth"
	NotesInstance = "notes"
)

package mutate

import "io"

// File is an upload attached to a write.
type File struct {
	Field    string // form field name, e.g. "attachment"
	Filename string
	Content  io.Reader
}

// FilePayload wraps a write payload that must go out as multipart form-data
// instead of JSON. Writers type-switch on it.
type FilePayload struct {
	Fields interface{} // marshalled and flattened into form fields
	File   File
}

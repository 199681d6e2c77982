package apiclient

import "fmt"

// Generic helpers that reduce repetitive HTTP boilerplate across the
// resource files. Each wraps the underlying Client verbs with type-safe
// generics for response handling. They are unexported (package-internal).

// getResource performs a GET request to the given path and decodes the
// response body into a value of type T.
//
// Example:
//
//	info, err := getResource[DumpInfo](c, "/api/dumps/alice/abc123")
func getResource[T any](c *Client, path string) (*T, error) {
	var result T
	if err := c.get(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// deleteResource performs a DELETE request to the given path and decodes
// the confirmation body into a value of type T.
func deleteResource[T any](c *Client, path string) (*T, error) {
	var result T
	if err := c.delete(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// uploadResource performs a multipart POST of one file and decodes the
// response into a value of type T.
func uploadResource[T any](c *Client, path, fieldName, filePath string, fields map[string]string) (*T, error) {
	var result T
	if err := c.upload(path, fieldName, filePath, fields, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// resourcePath builds a resource path by formatting a path template with
// the given arguments using fmt.Sprintf.
//
// Example:
//
//	path := resourcePath("/api/dumps/%s/%s", userID, dumpID)
func resourcePath(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

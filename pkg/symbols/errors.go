package symbols

import "errors"

var (
	// ErrNotFound indicates the dump has no symbol directory or the
	// requested symbol file does not exist.
	ErrNotFound = errors.New("symbols not found")

	// ErrInvalidFormat indicates the file is below the sanity floor or its
	// magic matches no supported symbol format.
	ErrInvalidFormat = errors.New("unrecognized symbol file format")

	// ErrBadID indicates a malformed dump id or file name.
	ErrBadID = errors.New("invalid identifier")

	// ErrBadArchive indicates the uploaded ZIP could not be read.
	ErrBadArchive = errors.New("invalid zip archive")
)

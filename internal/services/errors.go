package services

import "errors"

var (
	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidAccountType = errors.New("invalid account type")

	ErrInvalidFileType = errors.New("invalid file type")
	ErrEmptyPhoto      = errors.New("no file selected")
	ErrPhotoTooLarge   = errors.New("file too large")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrPhotoNotFound   = errors.New("photo not found")
)

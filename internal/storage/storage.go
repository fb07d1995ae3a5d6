package storage

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrTokenNotFound        = errors.New("token not found")
	ErrCourseNotFound       = errors.New("course not found")
	ErrCertificateNotFound  = errors.New("certificate not found")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrAlreadyEnrolled      = errors.New("already enrolled")
)

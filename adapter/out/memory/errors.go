package memory

import "errors"

var (
	ErrNotFound  = errors.New("memory: not found")
	ErrDuplicate = errors.New("memory: duplicate")
)

package domain

import "errors"

var (
	ErrSettingsNotFound = errors.New("guild settings not found")
	ErrNameNotFound     = errors.New("display name not found")
)

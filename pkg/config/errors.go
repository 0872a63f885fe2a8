package config

import "errors"

var (
	ErrConfigNotFound   = errors.New("config file not found")
	ErrNotLoaded        = errors.New("config not loaded")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrManagerClosed    = errors.New("config manager closed")
	ErrUnsupportedValue = errors.New("unsupported config value")
)

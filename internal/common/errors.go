package common

import "errors"

// ErrBackendNotConfigured is returned when [backend] base_url is empty.
var ErrBackendNotConfigured = errors.New("analysis backend is not configured: set [backend] base_url or STOCKSCOPE_BACKEND_URL")

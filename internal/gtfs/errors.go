package gtfs

import "errors"

// Error kinds returned by this package. Callers test them with errors.Is;
// the concrete errors wrap one of these with the upstream cause.
var (
	// ErrNetwork covers transport failures, timeouts and non-200 responses.
	ErrNetwork = errors.New("network error")
	// ErrDecode means a payload could not be parsed.
	ErrDecode = errors.New("decode error")
	// ErrNotFound means the requested trip or vehicle is absent from the live feed.
	ErrNotFound = errors.New("not found")
	// ErrConfig means required startup data is missing or unreadable.
	ErrConfig = errors.New("configuration error")
)

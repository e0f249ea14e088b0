package audit

// Default history window sizes.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Options configures a Service. Zero values fall back to the defaults above.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

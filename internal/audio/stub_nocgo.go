//go:build !cgo

package audio

// Device backends link against C audio libraries. Without cgo only the
// null and system_command backends are available.

type (
	MalgoBackend  struct{ Backend }
	OtoBackend    struct{ Backend }
	BeepBackend   struct{ Backend }
	EbitenBackend struct{ Backend }
)

func NewMalgoBackend(*TrackLoader) (*MalgoBackend, error)   { return nil, ErrCGORequired }
func NewOtoBackend(*TrackLoader) (*OtoBackend, error)       { return nil, ErrCGORequired }
func NewBeepBackend(*TrackLoader) (*BeepBackend, error)     { return nil, ErrCGORequired }
func NewEbitenBackend(*TrackLoader) (*EbitenBackend, error) { return nil, ErrCGORequired }

package health

// Service encapsulates health-related checks.
type Service struct {
	chunkCount func() int
}

// NewService constructs a health service. chunkCount reports the
// number of indexed chunks and may be nil.
func NewService(chunkCount func() int) *Service {
	return &Service{chunkCount: chunkCount}
}

// Status returns the liveness payload with the knowledge-base flag.
func (s *Service) Status() map[string]any {
	loaded := false
	if s.chunkCount != nil {
		loaded = s.chunkCount() > 0
	}
	return map[string]any{
		"ok":               true,
		"documents_loaded": loaded,
	}
}

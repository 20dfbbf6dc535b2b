package pipeline

import (
	"context"

	"github.com/sheikhmdsamiul/swiftme/internal/engine"
)

// Status summarizes the health of the service.
type Status struct {
	Engine          string `json:"engine"`
	EngineReachable bool   `json:"engine_reachable"`
	IndexedChunks   int    `json:"indexed_chunks"`
	HistorySize     int    `json:"history_size"`
	HistoryCapacity int    `json:"history_capacity"`
	// ArchivedProposals is omitted when the archive cannot count.
	ArchivedProposals int `json:"archived_proposals,omitempty"`
}

// archiveCounter is implemented by archives that can report their size.
type archiveCounter interface {
	CountProposals(ctx context.Context) (int, error)
}

// Status reports engine reachability, the indexed chunk count and history
// occupancy. Hosted engines without a model manager are assumed reachable.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{
		HistorySize:     s.history.Len(),
		HistoryCapacity: s.history.Capacity(),
	}
	if s.engine != nil {
		st.Engine = s.engine.Name()
		st.EngineReachable = true
		if mm, ok := s.engine.(engine.ModelManager); ok {
			st.EngineReachable = mm.IsRunning(ctx)
		}
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn("counting indexed chunks failed", "error", err)
	}
	st.IndexedChunks = n

	if c, ok := s.archive.(archiveCounter); ok {
		if n, err := c.CountProposals(ctx); err != nil {
			s.logger.Warn("counting archived proposals failed", "error", err)
		} else {
			st.ArchivedProposals = n
		}
	}
	return st
}

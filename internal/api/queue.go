package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/modelgate/internal/version"
)

func (s *Server) handleQueueStatus(c *echo.Context) error {
	st := s.controller.Status()
	out := QueueStatus{
		Object:   "queue",
		Mode:     string(st.Mode),
		Capacity: st.Capacity,
		Workers:  st.Workers,
		Size:     st.Size,
		Entries:  make([]QueueStatusEntry, 0, len(st.Entries)),
	}
	for _, e := range st.Entries {
		out.Entries = append(out.Entries, QueueStatusEntry{
			ID:                       e.ID,
			Model:                    e.WorkClass,
			Position:                 e.Position,
			Status:                   e.State.String(),
			EnqueuedAt:               e.EnqueuedAt,
			EstimatedDurationSeconds: e.EstimatedDuration.Seconds(),
			EstimatedWaitSeconds:     e.EstimatedWait.Seconds(),
		})
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, Health{
		Status:         "ok",
		Name:           s.name,
		ProjectVersion: s.version,
		Build:          version.Resolve(),
		QueueSize:      s.controller.Len(),
		QueueCapacity:  s.controller.Config().Capacity,
	})
}

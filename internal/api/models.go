package api

import (
	"net/http"

	"github.com/labstack/echo/v5"
)

func (s *Server) handleListModels(c *echo.Context) error {
	created := s.clock().Unix()
	data := make([]Model, 0, len(s.models))
	for _, id := range s.models {
		data = append(data, s.model(id, created))
	}
	return writeJSON(c, http.StatusOK, ModelList{Object: "list", Data: data})
}

func (s *Server) handleGetModel(c *echo.Context) error {
	id := c.Param("*")
	if !s.isSupported(id) {
		err := newUnsupportedModel(id)
		return writeBadRequest(c, errorParam(err), err.Error())
	}
	return writeJSON(c, http.StatusOK, s.model(id, s.clock().Unix()))
}

func (s *Server) model(id string, created int64) Model {
	return Model{
		ID:                         id,
		Object:                     "model",
		Created:                    created,
		OwnedBy:                    s.name,
		EstimatedProcessingSeconds: s.controller.Profile().Estimate(id).Seconds(),
	}
}

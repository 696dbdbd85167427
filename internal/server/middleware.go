package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shelfwise/internal/events"
	"go.uber.org/zap"
)

// dispatch hands committed events to the handlers. Handler failures are
// logged; the request already succeeded.
func (s *Server) dispatch(c *gin.Context, evts []events.Event) {
	if s.dispatcher == nil || len(evts) == 0 {
		return
	}
	if err := s.dispatcher.Dispatch(c.Request.Context(), evts...); err != nil {
		s.log.Warn("event dispatch failed", zap.Error(err))
	}
}

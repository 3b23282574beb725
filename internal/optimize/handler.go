package optimize

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/shared/server/respond"
)

// Handler exposes the gateway as POST /api/optimize.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the gateway route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/optimize", h.optimize)
}

// Request is the wire form of an optimization request.
type Request struct {
	CVText         string `json:"cvText"`
	JobDescription string `json:"jobDescription"`
}

func (h *Handler) optimize(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, MessageMissingInput)
		return
	}

	// The provider call is not cancelled when the caller goes away.
	result, err := h.Svc.Optimize(context.WithoutCancel(c.Request.Context()), req.CVText, req.JobDescription)
	if err != nil {
		status, message := StatusFor(err)
		respond.Message(c, status, message)
		return
	}

	respond.OK(c, gin.H{"result": result})
}

// StatusFor maps gateway errors to an HTTP status and public message.
func StatusFor(err error) (int, string) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, MessageMissingInput
	}
	return http.StatusInternalServerError, MessageProviderFailure
}

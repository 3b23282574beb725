package clientstate

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/optimize"
	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/server/respond"
)

// Handler exposes a client's state over HTTP.
type Handler struct {
	Registry  *Registry
	Optimizer Optimizer
}

// NewHandler constructs a Handler.
func NewHandler(registry *Registry, opt Optimizer) *Handler {
	return &Handler{Registry: registry, Optimizer: opt}
}

// RegisterRoutes attaches the state routes. The group must run the client
// identity middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	state := rg.Group("/state")
	state.GET("", h.getState)
	state.PUT("/drafts", h.putDrafts)
	state.PUT("/master", h.putMaster)
	state.POST("/master/reset", h.resetToMaster)
	state.POST("/optimize", h.submit)
	state.GET("/history", h.listHistory)
	state.GET("/history/:id", h.loadEntry)
	state.DELETE("/history/:id", h.deleteEntry)
}

type draftsRequest struct {
	CVText         string `json:"cvText"`
	JobDescription string `json:"jobDescription"`
}

type masterRequest struct {
	CVText string `json:"cvText"`
}

type resetRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (h *Handler) store(c *gin.Context) (*Store, bool) {
	s, err := h.Registry.For(c.Request.Context(), middleware.ClientIDFromContext(c))
	if err != nil {
		if errors.Is(err, ErrMissingClientID) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return nil, false
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load client state", nil)
		return nil, false
	}
	return s, true
}

func (h *Handler) getState(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) putDrafts(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var req draftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	_ = s.AutosaveDrafts(c.Request.Context(), req.CVText, req.JobDescription)
	respond.NoContent(c)
}

func (h *Handler) putMaster(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var req masterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if err := s.SaveMaster(c.Request.Context(), req.CVText); err != nil {
		writeStorageError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) resetToMaster(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	draft, err := s.ResetDraftFromMaster(c.Request.Context(), req.Confirmed)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoMaster):
			respond.Error(c, http.StatusNotFound, "no_master", "No Master CV saved yet.", nil)
		case errors.Is(err, ErrNotConfirmed):
			respond.Error(c, http.StatusConflict, "not_confirmed", ResetPrompt, nil)
		default:
			writeStorageError(c, err)
		}
		return
	}
	respond.OK(c, gin.H{"draftResume": draft})
}

func (h *Handler) submit(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var req draftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", optimize.MessageMissingInput, nil)
		return
	}

	entry, err := s.Submit(context.WithoutCancel(c.Request.Context()), h.Optimizer, req.CVText, req.JobDescription)
	if err != nil && !errors.Is(err, ErrInFlight) {
		c.Set("statusTransition", string(StatusInFlight)+"->"+string(StatusError))
	}
	if err != nil {
		var vErr *optimize.ValidationError
		switch {
		case errors.As(err, &vErr):
			respond.Error(c, http.StatusBadRequest, "validation_error", optimize.MessageMissingInput, vErr.Fields)
		case errors.Is(err, ErrInFlight):
			respond.Error(c, http.StatusConflict, "in_flight", "An optimization is already in progress.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "provider_error", optimize.MessageProviderFailure, nil)
		}
		return
	}
	c.Set("historyId", entry.ID)
	c.Set("statusTransition", string(StatusInFlight)+"->"+string(StatusSuccess))
	respond.OK(c, gin.H{"result": entry.Result, "entry": entry})
}

func (h *Handler) listHistory(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	respond.OK(c, gin.H{"items": s.History()})
}

func (h *Handler) loadEntry(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	c.Set("historyId", c.Param("id"))
	result, err := s.LoadEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "history entry not found", nil)
		return
	}
	respond.OK(c, gin.H{"result": result})
}

func (h *Handler) deleteEntry(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	c.Set("historyId", c.Param("id"))
	s.DeleteEntry(c.Request.Context(), c.Param("id"))
	respond.NoContent(c)
}

func writeStorageError(c *gin.Context, err error) {
	if IsStorageFull(err) {
		respond.Error(c, http.StatusInsufficientStorage, "storage_full", "Storage Full!", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to write client state", nil)
}

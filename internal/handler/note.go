package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"noteflow/internal/domain"
	"noteflow/internal/gateway"
	"noteflow/internal/views"
)

type CreateNoteRequest struct {
	TopicID string `json:"topicId"`
}

type UpdateContentRequest struct {
	Content string `json:"content"`
}

type UpdateTitleRequest struct {
	Title string `json:"title"`
}

type MoveNoteRequest struct {
	TopicID string `json:"topicId"`
}

// EventDateRequest sets the note's calendar date; null clears it.
type EventDateRequest struct {
	EventDate *time.Time `json:"eventDate"`
}

// ListNotes returns the caller's notes filtered by topic and tag, split
// into pinned, normal and archived, each newest first.
func (h *Handler) ListNotes(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	topicID := c.QueryParam("topic")
	if topicID == "" {
		topicID = domain.AllTopics
	}

	notes := views.FilterByTopic(s.Core.Notes(), topicID)
	notes = views.FilterByTag(notes, c.QueryParam("tag"))
	p := views.PartitionByStatus(notes)
	p.Pinned = views.SortByRecency(p.Pinned)
	p.Normal = views.SortByRecency(p.Normal)
	p.Archived = views.SortByRecency(p.Archived)
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetNote(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := findNote(s, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) CreateNote(c echo.Context) error {
	var req CreateNoteRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "Invalid request")
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := h.gw.CreateNote(c.Request().Context(), s.Scope(), req.TopicID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, n)
}

// mutate loads the note named in the path and applies fn to it.
func (h *Handler) mutate(c echo.Context, fn func(ctx context.Context, scope gateway.Scope, n domain.Note) (domain.Note, error)) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := findNote(s, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	n, err = fn(c.Request().Context(), s.Scope(), n)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// UpdateNoteContent stores new content; tags are recomputed from it.
func (h *Handler) UpdateNoteContent(c echo.Context) error {
	var req UpdateContentRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "Invalid request")
	}
	return h.mutate(c, func(ctx context.Context, scope gateway.Scope, n domain.Note) (domain.Note, error) {
		return h.gw.UpdateNoteContent(ctx, scope, n, req.Content)
	})
}

func (h *Handler) UpdateNoteTitle(c echo.Context) error {
	var req UpdateTitleRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "Invalid request")
	}
	return h.mutate(c, func(ctx context.Context, scope gateway.Scope, n domain.Note) (domain.Note, error) {
		return h.gw.UpdateNoteTitle(ctx, scope, n, req.Title)
	})
}

func (h *Handler) TogglePin(c echo.Context) error {
	return h.mutate(c, h.gw.TogglePin)
}

func (h *Handler) ToggleArchive(c echo.Context) error {
	return h.mutate(c, h.gw.ToggleArchive)
}

func (h *Handler) ToggleCompleted(c echo.Context) error {
	return h.mutate(c, h.gw.ToggleCompleted)
}

func (h *Handler) SetEventDate(c echo.Context) error {
	var req EventDateRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "Invalid request")
	}
	return h.mutate(c, func(ctx context.Context, scope gateway.Scope, n domain.Note) (domain.Note, error) {
		return h.gw.SetEventDate(ctx, scope, n, req.EventDate)
	})
}

func (h *Handler) MoveNote(c echo.Context) error {
	var req MoveNoteRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "Invalid request")
	}
	return h.mutate(c, func(ctx context.Context, scope gateway.Scope, n domain.Note) (domain.Note, error) {
		return h.gw.MoveNoteToTopic(ctx, scope, n, req.TopicID)
	})
}

// DeleteNote permanently removes a note and its media.
func (h *Handler) DeleteNote(c echo.Context) error {
	if err := requireConfirm(c); err != nil {
		return h.fail(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := findNote(s, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.gw.DeleteNote(c.Request().Context(), s.Scope(), n); err != nil {
		return h.fail(c, err)
	}
	if h.assistant != nil {
		h.assistant.Forget(n.ID)
	}
	return c.NoContent(http.StatusNoContent)
}

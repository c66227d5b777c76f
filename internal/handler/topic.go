package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"noteflow/internal/domain"
	"noteflow/internal/gateway"
	"noteflow/internal/topics"
)

type TopicResponse struct {
	domain.Topic
	Depth     int  `json:"depth"`
	CanRename bool `json:"canRename"`
	CanDelete bool `json:"canDelete"`
}

type TopicRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	ParentID    string `json:"parentId"`
}

// ListTopics returns topics sorted for display, children nested after their
// parents.
func (h *Handler) ListTopics(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	nodes := topics.Organize(s.Core.Topics())
	resp := make([]TopicResponse, 0, len(nodes))
	for _, n := range nodes {
		resp = append(resp, TopicResponse{
			Topic:     n.Topic,
			Depth:     n.Depth,
			CanRename: topics.CanRename(n.Topic),
			CanDelete: topics.CanDelete(n.Topic),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) CreateTopic(c echo.Context) error {
	var req TopicRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "Invalid request")
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	t, err := h.gw.AddTopic(c.Request().Context(), s.Scope(), gateway.TopicInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) UpdateTopic(c echo.Context) error {
	var req TopicRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "Invalid request")
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	t, err := findTopic(s, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	t, err = h.gw.RenameTopic(c.Request().Context(), s.Scope(), t, req.Name, req.Description)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTopic removes a user topic after moving its notes to "No Topic".
func (h *Handler) DeleteTopic(c echo.Context) error {
	if err := requireConfirm(c); err != nil {
		return h.fail(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	t, err := findTopic(s, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	res, err := h.gw.DeleteTopic(c.Request().Context(), s.Scope(), t)
	if err != nil {
		return h.fail(c, err)
	}
	if !res.Deleted {
		return h.fail(c, domain.ErrForbidden)
	}
	return c.JSON(http.StatusOK, res)
}

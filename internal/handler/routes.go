package handler

import "github.com/labstack/echo/v4"

// Register mounts the authenticated API on g.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/state", h.GetState)
	g.POST("/sync/retry", h.RetrySync)
	g.GET("/live", h.Live)

	g.GET("/topics", h.ListTopics)
	g.POST("/topics", h.CreateTopic)
	g.PUT("/topics/:id", h.UpdateTopic)
	g.DELETE("/topics/:id", h.DeleteTopic)

	g.GET("/notes", h.ListNotes)
	g.POST("/notes", h.CreateNote)
	g.GET("/notes/:id", h.GetNote)
	g.PUT("/notes/:id/content", h.UpdateNoteContent)
	g.PUT("/notes/:id/title", h.UpdateNoteTitle)
	g.PUT("/notes/:id/topic", h.MoveNote)
	g.PUT("/notes/:id/event-date", h.SetEventDate)
	g.POST("/notes/:id/pin", h.TogglePin)
	g.POST("/notes/:id/archive", h.ToggleArchive)
	g.POST("/notes/:id/complete", h.ToggleCompleted)
	g.DELETE("/notes/:id", h.DeleteNote)

	g.POST("/notes/:id/media", h.UploadMedia)
	g.DELETE("/notes/:id/media", h.DeleteMedia)
	g.POST("/notes/:id/prompt", h.RunPrompt)
	g.POST("/voice-notes", h.CreateVoiceNote)

	g.GET("/tags", h.ListTags)
	g.GET("/upcoming", h.ListUpcoming)

	g.GET("/calendar/week", h.GetWeek)
	g.POST("/events", h.CreateEvent)
	g.DELETE("/events/:id", h.DeleteEvent)

	g.POST("/render", h.RenderMarkdown)

	g.POST("/backup", h.RunBackup)
	g.GET("/backup/list", h.ListBackups)
}

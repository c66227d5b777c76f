package gateway

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"noteflow/internal/blob"
	"noteflow/internal/domain"
)

// AttachMedia uploads r and appends its URL to the note's media list. If the
// note write fails the uploaded object is removed again.
func (g *Gateway) AttachMedia(ctx context.Context, s Scope, n domain.Note, filename string, r io.Reader) (domain.Note, error) {
	if err := s.validate(); err != nil {
		return domain.Note{}, err
	}
	if g.blobs == nil {
		return domain.Note{}, fmt.Errorf("attach media: %w: no blob storage configured", domain.ErrPrecondition)
	}
	if n.ID == "" {
		return domain.Note{}, domain.NewValidationError("id", "required")
	}

	objectPath := fmt.Sprintf("users/%s/notes/%s/%s%s", s.UserID, n.ID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
	url, err := g.blobs.Upload(ctx, objectPath, r, blob.ContentType(filename))
	if err != nil {
		g.log.Error("media upload failed",
			zap.String("user_id", s.UserID),
			zap.String("note_id", n.ID),
			zap.Error(err),
		)
		return domain.Note{}, fmt.Errorf("upload media: %w", err)
	}

	n.Media = append(append([]string{}, n.Media...), url)
	updated, err := g.patch(ctx, s, n, "attach_media", map[string]any{"media": n.Media})
	if err != nil {
		if derr := g.blobs.Delete(context.WithoutCancel(ctx), objectPath); derr != nil {
			g.log.Warn("orphaned media object", zap.String("path", objectPath), zap.Error(derr))
		}
		return domain.Note{}, err
	}
	return updated, nil
}

// RemoveMedia drops url from the note's media list, then deletes the object.
func (g *Gateway) RemoveMedia(ctx context.Context, s Scope, n domain.Note, url string) (domain.Note, error) {
	kept := make([]string, 0, len(n.Media))
	found := false
	for _, m := range n.Media {
		if m == url {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return domain.Note{}, fmt.Errorf("media %s: %w", url, domain.ErrNotFound)
	}

	n.Media = kept
	updated, err := g.patch(ctx, s, n, "remove_media", map[string]any{"media": n.Media})
	if err != nil {
		return domain.Note{}, err
	}
	g.removeBlobs(ctx, s, []string{url})
	return updated, nil
}

func (g *Gateway) removeBlobs(ctx context.Context, s Scope, urls []string) {
	if g.blobs == nil {
		return
	}
	for _, u := range urls {
		p, ok := g.blobs.PathFromURL(u)
		if !ok {
			continue
		}
		if err := g.blobs.Delete(context.WithoutCancel(ctx), p); err != nil {
			g.log.Warn("media delete failed",
				zap.String("user_id", s.UserID),
				zap.String("path", p),
				zap.Error(err),
			)
		}
	}
}

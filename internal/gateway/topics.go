package gateway

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"noteflow/internal/domain"
	"noteflow/internal/records"
	"noteflow/internal/store"
	"noteflow/internal/topics"
)

var topicColors = []string{"red", "orange", "yellow", "green", "teal", "blue", "indigo", "purple", "pink"}

func (g *Gateway) loadTopics(ctx context.Context, userID string) ([]domain.Topic, error) {
	recs, err := g.docs.List(ctx, userID, records.TopicsCollection)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Topic, 0, len(recs))
	for _, r := range recs {
		t, _ := records.DecodeTopic(r.ID, r.Data)
		out = append(out, t)
	}
	return out, nil
}

// EnsureDefaultTopics creates the required default topics missing for
// userID. current is a hint; the store is re-read before creating anything.
func (g *Gateway) EnsureDefaultTopics(ctx context.Context, userID string, current []domain.Topic) error {
	if len(topics.Missing(current)) == 0 {
		return nil
	}
	for _, req := range topics.Required {
		if _, err := g.ensureDefault(ctx, userID, req.Name); err != nil {
			return err
		}
	}
	return nil
}

// ensureDefault returns the id of the named default topic, creating it when
// the user has none.
func (g *Gateway) ensureDefault(ctx context.Context, userID, name string) (string, error) {
	mu := g.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	current, err := g.loadTopics(ctx, userID)
	if err != nil {
		g.writeFailed("ensure_default_topic", Scope{UserID: userID}, name, err)
		return "", fmt.Errorf("load topics: %w", err)
	}
	if id, ok := topics.ResolveDefaultTopicID(current, name); ok {
		return id, nil
	}

	var tmpl domain.Topic
	for _, req := range topics.Required {
		if req.Name == name {
			tmpl = req
		}
	}
	if tmpl.Name == "" {
		return "", fmt.Errorf("%w: unknown default topic %q", domain.ErrPrecondition, name)
	}
	tmpl.UserID = userID

	id, err := g.docs.Create(ctx, userID, records.TopicsCollection, records.EncodeTopic(tmpl))
	if err != nil {
		g.writeFailed("ensure_default_topic", Scope{UserID: userID}, name, err)
		return "", fmt.Errorf("create default topic %q: %w", name, err)
	}
	g.log.Info("default topic created",
		zap.String("user_id", userID),
		zap.String("name", name),
		zap.String("id", id),
	)
	return id, nil
}

// TopicInput carries the user-editable topic fields.
type TopicInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	ParentID    string `json:"parentId"`
}

// AddTopic creates a user topic. A blank name becomes "New Topic" and a blank
// color is picked at random.
func (g *Gateway) AddTopic(ctx context.Context, s Scope, in TopicInput) (domain.Topic, error) {
	if err := s.validate(); err != nil {
		return domain.Topic{}, err
	}
	t := domain.Topic{
		UserID:      s.UserID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Color:       in.Color,
		ParentID:    in.ParentID,
	}
	if t.Name == "" {
		t.Name = domain.DefaultTopicName
	}
	if t.Color == "" {
		t.Color = "bg-" + topicColors[rand.IntN(len(topicColors))] + "-200"
	}
	if t.ParentID != "" {
		current, err := g.loadTopics(ctx, s.UserID)
		if err != nil {
			return domain.Topic{}, fmt.Errorf("load topics: %w", err)
		}
		if _, ok := topics.FindByID(current, t.ParentID); !ok {
			return domain.Topic{}, domain.NewValidationError("parentId", "unknown topic")
		}
	}

	id, err := g.docs.Create(ctx, s.UserID, records.TopicsCollection, records.EncodeTopic(t))
	if err != nil {
		g.writeFailed("add_topic", s, "", err)
		return domain.Topic{}, fmt.Errorf("add topic: %w", err)
	}
	t.ID = id
	return t, nil
}

// RenameTopic updates a user topic's name and description. Default topics
// are refused with ErrForbidden. A blank name keeps the current one.
func (g *Gateway) RenameTopic(ctx context.Context, s Scope, t domain.Topic, name, description string) (domain.Topic, error) {
	if err := s.validate(); err != nil {
		return domain.Topic{}, err
	}
	if !topics.CanRename(t) {
		return t, fmt.Errorf("rename %q: %w", t.Name, domain.ErrForbidden)
	}
	if n := strings.TrimSpace(name); n != "" {
		t.Name = n
	}
	t.Description = strings.TrimSpace(description)

	err := g.docs.Update(ctx, s.UserID, records.TopicsCollection, t.ID, map[string]any{
		"name":        t.Name,
		"description": t.Description,
	})
	if err != nil {
		g.writeFailed("rename_topic", s, t.ID, err)
		return domain.Topic{}, fmt.Errorf("rename topic: %w", err)
	}
	return t, nil
}

// DeleteTopicResult summarizes a topic deletion.
type DeleteTopicResult struct {
	Deleted     bool     `json:"deleted"`
	TargetTopic string   `json:"targetTopicId,omitempty"`
	Reassigned  []string `json:"reassigned"`
	Reparented  []string `json:"reparented"`
}

// DeleteTopic removes a user topic. Default topics are left alone and
// reported as not deleted. Every note in the topic is first moved to
// "No Topic" (created if needed) and every child topic is moved to the
// deleted topic's parent. These writes are issued concurrently, one per
// record. If any of them fails the topic is kept, so no note ever points at
// a missing topic, and a *FanOutError lists which records moved.
func (g *Gateway) DeleteTopic(ctx context.Context, s Scope, t domain.Topic) (DeleteTopicResult, error) {
	res := DeleteTopicResult{Reassigned: []string{}, Reparented: []string{}}
	if err := s.validate(); err != nil {
		return res, err
	}
	if !topics.CanDelete(t) {
		g.log.Debug("default topic delete ignored", zap.String("user_id", s.UserID), zap.String("id", t.ID))
		return res, nil
	}

	target, err := g.ensureDefault(ctx, s.UserID, domain.NoTopicName)
	if err != nil {
		return res, err
	}
	res.TargetTopic = target

	noteRecs, err := g.docs.List(ctx, s.UserID, records.NotesCollection)
	if err != nil {
		g.writeFailed("delete_topic", s, t.ID, err)
		return res, fmt.Errorf("list notes: %w", err)
	}
	var noteIDs []string
	for _, r := range noteRecs {
		if records.MigrateNote(r.Data)["topicId"] == t.ID {
			noteIDs = append(noteIDs, r.ID)
		}
	}

	current, err := g.loadTopics(ctx, s.UserID)
	if err != nil {
		g.writeFailed("delete_topic", s, t.ID, err)
		return res, fmt.Errorf("load topics: %w", err)
	}
	var childIDs []string
	for _, c := range current {
		if c.ParentID == t.ID && c.ID != t.ID {
			childIDs = append(childIDs, c.ID)
		}
	}

	var (
		mu     sync.Mutex
		failed = make(map[string]error)
	)
	now := g.now()
	eg := new(errgroup.Group)
	eg.SetLimit(g.fanOut)

	write := func(coll, id string, partial map[string]any, done *[]string) {
		eg.Go(func() error {
			err := g.docs.Update(ctx, s.UserID, coll, id, partial)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[id] = err
				g.log.Warn("cascade write failed",
					zap.String("user_id", s.UserID),
					zap.String("topic_id", t.ID),
					zap.String("collection", coll),
					zap.String("id", id),
					zap.Bool("transient", store.IsTransient(err)),
					zap.Error(err),
				)
				return nil
			}
			*done = append(*done, id)
			return nil
		})
	}
	for _, id := range noteIDs {
		write(records.NotesCollection, id, map[string]any{"topicId": target, "updatedAt": now}, &res.Reassigned)
	}
	for _, id := range childIDs {
		write(records.TopicsCollection, id, map[string]any{"parentId": t.ParentID}, &res.Reparented)
	}
	_ = eg.Wait()

	if len(failed) > 0 {
		succeeded := append(append([]string{}, res.Reassigned...), res.Reparented...)
		g.log.Error("topic kept after partial cascade",
			zap.String("user_id", s.UserID),
			zap.String("topic_id", t.ID),
			zap.Int("failed", len(failed)),
			zap.Int("succeeded", len(succeeded)),
		)
		return res, &FanOutError{Op: "delete topic " + t.ID, Succeeded: succeeded, Failed: failed}
	}

	if err := g.docs.Delete(ctx, s.UserID, records.TopicsCollection, t.ID); err != nil {
		g.writeFailed("delete_topic", s, t.ID, err)
		return res, fmt.Errorf("delete topic: %w", err)
	}
	res.Deleted = true
	g.log.Info("topic deleted",
		zap.String("user_id", s.UserID),
		zap.String("topic_id", t.ID),
		zap.Int("notes_moved", len(res.Reassigned)),
	)
	return res, nil
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/classroom-seating/internal/queue"
	"github.com/iliyamo/classroom-seating/internal/roster"
	"github.com/iliyamo/classroom-seating/internal/seating"
	"github.com/iliyamo/classroom-seating/internal/service"
	"github.com/iliyamo/classroom-seating/internal/store"
	"github.com/iliyamo/classroom-seating/internal/ws"
)

// maxUpload bounds roster and snapshot bodies.
const maxUpload = 1 << 20

// SessionHandler serves the working seating sessions of the current teacher.
// Every mutation goes through store.Manager.Update, so a rejected operation
// leaves the stored session as it was.
type SessionHandler struct {
	Store  *store.Manager
	Events service.Publisher
	Hub    *ws.Hub
}

func NewSessionHandler(s *store.Manager, events service.Publisher, hub *ws.Hub) *SessionHandler {
	if events == nil {
		events = service.NopPublisher{}
	}
	return &SessionHandler{Store: s, Events: events, Hub: hub}
}

type createSessionReq struct {
	Rows        int    `json:"rows" validate:"required,min=1,max=15"`
	Cols        int    `json:"cols" validate:"required,min=1,max=15"`
	Orientation string `json:"orientation" validate:"omitempty,oneof=near far bottom top"`
}

type dimensionsReq struct {
	Rows int `json:"rows" validate:"required,min=1,max=15"`
	Cols int `json:"cols" validate:"required,min=1,max=15"`
}

type orientationReq struct {
	Orientation string `json:"orientation" validate:"required,oneof=near far bottom top"`
}

type dropSource struct {
	Type      string `json:"type" validate:"required,oneof=roster seat"`
	StudentID string `json:"student_id" validate:"required_if=Type roster"`
	Index     *int   `json:"index" validate:"omitempty,min=0"`
}

type dropReq struct {
	Target *int       `json:"target" validate:"required,min=0"`
	Source dropSource `json:"source"`
}

type arrangeReq struct {
	Mode  string `json:"mode" validate:"required,oneof=random gender"`
	Force bool   `json:"force"`
}

type clearReq struct {
	All bool `json:"all"`
}

func topic(owner, id string) string { return owner + ":" + id }

// mutate applies fn to the session named in the path, then answers with the
// updated view and pushes it to websocket subscribers.
func (h *SessionHandler) mutate(c echo.Context, fn func(*seating.Session) error) error {
	uid, err := owner(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Store.Update(ctx, uid, id, fn)
	if err != nil {
		return writeError(c, err)
	}
	view := newSessionView(id, s)
	h.Hub.Publish(topic(uid, id), ws.Event{Type: ws.EventUpdated, SessionID: id, Data: view})
	return c.JSON(http.StatusOK, view)
}

// Create starts an empty session of the requested size.
func (h *SessionHandler) Create(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createSessionReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	o, err := seating.ParseOrientation(req.Orientation)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, s, err := h.Store.Create(ctx, uid, req.Rows, req.Cols, o)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, newSessionView(id, s))
}

// List returns the ids of the teacher's open sessions.
func (h *SessionHandler) List(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ids, err := h.Store.List(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": ids})
}

// Get returns the full session view.
func (h *SessionHandler) Get(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Store.Get(ctx, uid, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newSessionView(c.Param("id"), s))
}

// Chart renders the grid as plain text, blackboard included.
func (h *SessionHandler) Chart(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Store.Get(ctx, uid, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.String(http.StatusOK, s.Format())
}

// Delete closes a session.
func (h *SessionHandler) Delete(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.Delete(ctx, uid, id); err != nil {
		return writeError(c, err)
	}
	h.Hub.Publish(topic(uid, id), ws.Event{Type: ws.EventDeleted, SessionID: id})
	return c.NoContent(http.StatusNoContent)
}

// Resize rebuilds the grid. It discards every seat and constraint, so
// clients confirm before calling it.
func (h *SessionHandler) Resize(c echo.Context) error {
	var req dimensionsReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	return h.mutate(c, func(s *seating.Session) error {
		return s.Resize(req.Rows, req.Cols)
	})
}

func (h *SessionHandler) SetOrientation(c echo.Context) error {
	var req orientationReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	o, err := seating.ParseOrientation(req.Orientation)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return h.mutate(c, func(s *seating.Session) error {
		return s.SetOrientation(o)
	})
}

// SetRoster replaces the roster with the CSV records in the body
// ("id,name,gender" per line). Seated students stay where they are.
func (h *SessionHandler) SetRoster(c echo.Context) error {
	res, err := roster.Parse(io.LimitReader(c.Request().Body, maxUpload))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "read roster failed"})
	}
	if len(res.Students) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid student records", "skipped": res.Skipped})
	}
	if res.Skipped > 0 {
		c.Response().Header().Set("X-Roster-Skipped", fmt.Sprint(res.Skipped))
	}
	return h.mutate(c, func(s *seating.Session) error {
		s.SetRoster(res.Students)
		return nil
	})
}

// seatOp wraps a single-seat operation addressed by :index.
func (h *SessionHandler) seatOp(op func(s *seating.Session, i int) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		i, ok := seatIndex(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat index"})
		}
		return h.mutate(c, func(s *seating.Session) error {
			return op(s, i)
		})
	}
}

func (h *SessionHandler) Lock(c echo.Context) error {
	return h.seatOp(func(s *seating.Session, i int) error { return s.Lock(i) })(c)
}

func (h *SessionHandler) Unlock(c echo.Context) error {
	return h.seatOp(func(s *seating.Session, i int) error { return s.Unlock(i) })(c)
}

func (h *SessionHandler) ToggleLock(c echo.Context) error {
	return h.seatOp(func(s *seating.Session, i int) error {
		_, err := s.ToggleLock(i)
		return err
	})(c)
}

func (h *SessionHandler) Disable(c echo.Context) error {
	return h.seatOp(func(s *seating.Session, i int) error { return s.Disable(i) })(c)
}

func (h *SessionHandler) Enable(c echo.Context) error {
	return h.seatOp(func(s *seating.Session, i int) error { return s.Enable(i) })(c)
}

func (h *SessionHandler) ToggleDisabled(c echo.Context) error {
	return h.seatOp(func(s *seating.Session, i int) error {
		_, err := s.ToggleDisabled(i)
		return err
	})(c)
}

// Unassign returns the occupant of :index to the student list.
func (h *SessionHandler) Unassign(c echo.Context) error {
	return h.seatOp(func(s *seating.Session, i int) error {
		_, err := s.Unassign(i)
		return err
	})(c)
}

// Drop moves a student onto the target seat, either from the student list
// or from another seat.
func (h *SessionHandler) Drop(c echo.Context) error {
	var req dropReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if req.Source.Type == "seat" && req.Source.Index == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "source.index required"})
	}
	return h.mutate(c, func(s *seating.Session) error {
		var cmd seating.Command
		if req.Source.Type == "roster" {
			st, ok := s.StudentByID(req.Source.StudentID)
			if !ok {
				return fmt.Errorf("%w: %q", seating.ErrUnknownStudent, req.Source.StudentID)
			}
			cmd = seating.MoveFromRoster{Student: st}
		} else {
			cmd = seating.MoveFromSeat{Index: *req.Source.Index}
		}
		return s.HandleDrop(*req.Target, cmd)
	})
}

// Arrange runs an auto-arrangement. When locked seats conflict with the
// gender pattern the request is refused with the conflict list unless force
// is set.
func (h *SessionHandler) Arrange(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req arrangeReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	mode, err := seating.ParseMode(req.Mode)
	if err != nil {
		return writeError(c, err)
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		report    *seating.Report
		conflicts []seating.Conflict
	)
	s, err := h.Store.Update(ctx, uid, id, func(s *seating.Session) error {
		r, err := s.Arrange(mode, func(cs []seating.Conflict) bool {
			conflicts = cs
			return req.Force
		})
		report = r
		return err
	})
	if errors.Is(err, seating.ErrArrangementCancelled) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "locked seats conflict with the gender pattern",
			"conflicts": conflicts,
			"messages":  conflictMessages(conflicts),
		})
	}
	if err != nil {
		return writeError(c, err)
	}

	view := newSessionView(id, s)
	h.Hub.Publish(topic(uid, id), ws.Event{Type: ws.EventArranged, SessionID: id, Data: view})
	h.publishArrangement(c, uid, id, s, report, req.Force)

	return c.JSON(http.StatusOK, echo.Map{
		"message": report.Message(),
		"report":  report,
		"session": view,
	})
}

func conflictMessages(cs []seating.Conflict) []string {
	out := make([]string, len(cs))
	for i, cf := range cs {
		out[i] = cf.String()
	}
	return out
}

// publishArrangement sends the arrangement event in the background; the
// broker being down never fails the request.
func (h *SessionHandler) publishArrangement(c echo.Context, ownerKey, id string, s *seating.Session, r *seating.Report, forced bool) {
	userID, _ := getUserID(c)
	d := s.Dimensions()
	ev := queue.ArrangementCompletedEvent{
		OwnerID:     userID,
		SessionID:   id,
		Mode:        string(r.Mode),
		Strategy:    string(r.Strategy),
		Rows:        d.Rows,
		Cols:        d.Cols,
		Preserved:   r.Preserved,
		Placed:      r.Placed,
		Unplaced:    r.Unplaced,
		Conflicts:   conflictMessages(r.Conflicts),
		Forced:      forced && len(r.Conflicts) > 0,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}
	logger := c.Logger()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Events.PublishArrangementCompleted(ctx, ev); err != nil {
			logger.Warnf("publish arrangement for %s: %v", topic(ownerKey, id), err)
		}
	}()
}

// Clear empties every seat, or with all=true also the roster and the
// constraint sets.
func (h *SessionHandler) Clear(c echo.Context) error {
	var req clearReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	return h.mutate(c, func(s *seating.Session) error {
		if req.All {
			s.ClearAll()
		} else {
			s.ClearSeats()
		}
		return nil
	})
}

// ExportSnapshot downloads the session as a seating-chart file.
func (h *SessionHandler) ExportSnapshot(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Store.Get(ctx, uid, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	data, err := s.ExportJSON()
	if err != nil {
		return writeError(c, err)
	}
	name := seating.SnapshotFilename(time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, data)
}

// ImportSnapshot replaces the session with an uploaded seating-chart file.
// A malformed file is rejected without touching the session.
func (h *SessionHandler) ImportSnapshot(c echo.Context) error {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUpload))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "read body failed"})
	}
	return h.mutate(c, func(s *seating.Session) error {
		return s.ImportJSON(data)
	})
}

// Watch upgrades to a websocket that first receives the current view and
// then every change to the session.
func (h *SessionHandler) Watch(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	s, err := h.Store.Get(ctx, uid, id)
	cancel()
	if err != nil {
		return writeError(c, err)
	}
	return h.Hub.Serve(c, topic(uid, id), &ws.Event{Type: ws.EventSnapshot, SessionID: id, Data: newSessionView(id, s)})
}

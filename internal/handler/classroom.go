package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/classroom-seating/internal/model"
	"github.com/iliyamo/classroom-seating/internal/repository"
	"github.com/iliyamo/classroom-seating/internal/seating"
	"github.com/iliyamo/classroom-seating/internal/store"
)

// ClassroomHandler saves working sessions as named classrooms in MySQL and
// reopens them as new sessions.
type ClassroomHandler struct {
	Repo  *repository.ClassroomRepo
	Store *store.Manager
}

func NewClassroomHandler(repo *repository.ClassroomRepo, s *store.Manager) *ClassroomHandler {
	if repo == nil || s == nil {
		panic("nil dependency passed to NewClassroomHandler")
	}
	return &ClassroomHandler{Repo: repo, Store: s}
}

type saveClassroomReq struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Save stores the session under the given name, overwriting an existing
// classroom of the same name.
func (h *ClassroomHandler) Save(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req saveClassroomReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Store.Get(ctx, strconv.FormatUint(userID, 10), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	data, err := s.ExportJSON()
	if err != nil {
		return writeError(c, err)
	}
	d := s.Dimensions()
	room := &model.Classroom{
		OwnerID:  userID,
		Name:     req.Name,
		Rows:     d.Rows,
		Cols:     d.Cols,
		Students: len(s.Roster()),
		Snapshot: data,
	}
	if err := h.Repo.Save(ctx, room); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save classroom failed"})
	}
	room.Snapshot = nil
	return c.JSON(http.StatusCreated, room)
}

// List returns the teacher's classrooms without their charts.
func (h *ClassroomHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Repo.ListByOwner(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"classrooms": rooms})
}

// Open restores a saved classroom into a new working session.
func (h *ClassroomHandler) Open(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid classroom id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	room, err := h.Repo.GetByIDAndOwner(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrClassroomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "classroom not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	snap, err := seating.ParseSnapshot(room.Snapshot)
	if err != nil {
		c.Logger().Errorf("classroom %d holds an unreadable chart: %v", room.ID, err)
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "stored chart is unreadable"})
	}
	sid, s, err := h.Store.CreateFrom(ctx, strconv.FormatUint(userID, 10), snap)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, newSessionView(sid, s))
}

// Delete removes a saved classroom. Sessions opened from it are unaffected.
func (h *ClassroomHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid classroom id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrClassroomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "classroom not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

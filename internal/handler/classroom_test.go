package handler

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/classroom-seating/internal/model"
	"github.com/iliyamo/classroom-seating/internal/repository"
	"github.com/iliyamo/classroom-seating/internal/seating"
)

func newClassroomServer(t *testing.T) (*testServer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
		db.Close()
	})

	ts := newTestServer(t)
	h := NewClassroomHandler(repository.NewClassroomRepo(db), ts.store)
	ts.e.POST("/v1/sessions/:id/classroom", h.Save, testUser)
	g := ts.e.Group("/v1/classrooms", testUser)
	g.GET("", h.List)
	g.POST("/:id/sessions", h.Open)
	g.DELETE("/:id", h.Delete)
	return ts, mock
}

func TestSaveClassroom(t *testing.T) {
	ts, mock := newClassroomServer(t)
	id := ts.createSession(t, 2, 2, classCSV)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO classrooms")).
		WithArgs(uint64(1), "3A", 2, 2, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at, updated_at FROM classrooms WHERE id = ?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	rec := ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/classroom", `{"name":"3A"}`)
	expect(t, rec, http.StatusCreated)
	var room model.Classroom
	decode(t, rec, &room)
	if room.ID != 5 || room.Name != "3A" || room.Students != 3 || room.Snapshot != nil {
		t.Fatalf("room = %+v", room)
	}

	expect(t, ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/classroom", `{"name":""}`), http.StatusBadRequest)
	expect(t, ts.do(t, http.MethodPost, "/v1/sessions/missing/classroom", `{"name":"3A"}`), http.StatusNotFound)
}

func TestOpenClassroom(t *testing.T) {
	ts, mock := newClassroomServer(t)
	now := time.Now().UTC()
	cols := []string{"id", "owner_id", "name", "rows", "cols", "students", "snapshot", "created_at", "updated_at"}
	snap := `{"rows":2,"cols":2,"students":[{"id":"1","name":"王小明","gender":"male"}],` +
		`"seating":[null,{"id":"1","name":"王小明","gender":"male"},null,null],"fixedSeats":[1],"disabledSeats":[3],"viewMode":"top"}`
	q := regexp.QuoteMeta("FROM classrooms WHERE id = ? AND owner_id = ?")

	mock.ExpectQuery(q).WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(4, 1, "3A", 2, 2, 1, []byte(snap), now, now))
	rec := ts.do(t, http.MethodPost, "/v1/classrooms/4/sessions", "")
	expect(t, rec, http.StatusCreated)
	var v sessionView
	decode(t, rec, &v)
	if v.Orientation != seating.Far || !v.Seats[1].Locked || !v.Seats[3].Disabled || v.Seats[1].Student.ID != "1" {
		t.Fatalf("opened = %+v", v)
	}
	if _, err := ts.store.Get(context.Background(), "1", v.ID); err != nil {
		t.Fatalf("opened session not stored: %v", err)
	}

	mock.ExpectQuery(q).WithArgs(uint64(4), uint64(1)).WillReturnRows(sqlmock.NewRows(cols))
	expect(t, ts.do(t, http.MethodPost, "/v1/classrooms/4/sessions", ""), http.StatusNotFound)

	mock.ExpectQuery(q).WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(4, 1, "3A", 2, 2, 1, []byte(`{"cols":2}`), now, now))
	expect(t, ts.do(t, http.MethodPost, "/v1/classrooms/4/sessions", ""), http.StatusUnprocessableEntity)

	expect(t, ts.do(t, http.MethodPost, "/v1/classrooms/abc/sessions", ""), http.StatusBadRequest)
}

func TestListAndDeleteClassrooms(t *testing.T) {
	ts, mock := newClassroomServer(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM classrooms WHERE owner_id = ?")).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "rows", "cols", "students", "created_at", "updated_at"}).
			AddRow(1, 1, "3A", 6, 5, 30, now, now))
	rec := ts.do(t, http.MethodGet, "/v1/classrooms", "")
	expect(t, rec, http.StatusOK)
	var out struct{ Classrooms []model.Classroom }
	decode(t, rec, &out)
	if len(out.Classrooms) != 1 || out.Classrooms[0].Rows != 6 {
		t.Fatalf("list = %+v", out)
	}

	del := regexp.QuoteMeta("DELETE FROM classrooms WHERE id = ? AND owner_id = ?")
	mock.ExpectExec(del).WithArgs(uint64(1), uint64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	expect(t, ts.do(t, http.MethodDelete, "/v1/classrooms/1", ""), http.StatusNoContent)
	mock.ExpectExec(del).WithArgs(uint64(1), uint64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
	expect(t, ts.do(t, http.MethodDelete, "/v1/classrooms/1", "", "X-Test-User", "2"), http.StatusNotFound)
}

func TestNewClassroomHandlerPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewClassroomHandler(nil, nil)
}

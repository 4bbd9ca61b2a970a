package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/classroom-seating/internal/seating"
)

const classCSV = "1,王小明,男\n2,李小華,女\n3,陳大文,m\nbroken line\n"

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{`{"rows":0,"cols":5}`, `{"rows":16,"cols":5}`, `{"rows":3,"cols":3,"orientation":"left"}`, `{`} {
		expect(t, ts.do(t, http.MethodPost, "/v1/sessions", body), http.StatusBadRequest)
	}

	rec := ts.do(t, http.MethodPost, "/v1/sessions", `{"rows":6,"cols":5,"orientation":"far"}`)
	expect(t, rec, http.StatusCreated)
	var v sessionView
	decode(t, rec, &v)
	if v.ID == "" || len(v.Seats) != 30 || v.Orientation != seating.Far {
		t.Fatalf("view = %+v", v)
	}
	// far: display index 0 is the rightmost column, room-row Cols
	if s := v.Seats[0]; s.Col != 4 || s.Row != 0 || s.RowLabel != 1 {
		t.Fatalf("seat 0 = %+v", s)
	}

	expect(t, ts.do(t, http.MethodGet, "/v1/sessions/"+v.ID, ""), http.StatusOK)
	expect(t, ts.do(t, http.MethodGet, "/v1/sessions/"+v.ID, "", "X-Test-User", "2"), http.StatusNotFound)

	var list struct{ Sessions []string }
	decode(t, ts.do(t, http.MethodGet, "/v1/sessions", ""), &list)
	if len(list.Sessions) != 1 || list.Sessions[0] != v.ID {
		t.Fatalf("list = %v", list.Sessions)
	}

	expect(t, ts.do(t, http.MethodDelete, "/v1/sessions/"+v.ID, ""), http.StatusNoContent)
	expect(t, ts.do(t, http.MethodGet, "/v1/sessions/"+v.ID, ""), http.StatusNotFound)
}

func TestSetRoster(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, 2, 2, "")

	rec := ts.do(t, http.MethodPut, "/v1/sessions/"+id+"/roster", classCSV, "Content-Type", "text/csv")
	expect(t, rec, http.StatusOK)
	if rec.Header().Get("X-Roster-Skipped") != "1" {
		t.Fatalf("skipped header = %q", rec.Header().Get("X-Roster-Skipped"))
	}
	var v sessionView
	decode(t, rec, &v)
	if len(v.Roster) != 3 || len(v.Unassigned) != 3 || v.Roster[2].Gender != seating.Male {
		t.Fatalf("roster = %+v", v.Roster)
	}

	rec = ts.do(t, http.MethodPut, "/v1/sessions/"+id+"/roster", "nothing,here\n", "Content-Type", "text/csv")
	expect(t, rec, http.StatusBadRequest)
}

func TestSeatOperations(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, 2, 3, classCSV)
	base := "/v1/sessions/" + id

	// drop from the student list assigns and locks
	rec := ts.do(t, http.MethodPost, base+"/drop", `{"target":0,"source":{"type":"roster","student_id":"1"}}`)
	expect(t, rec, http.StatusOK)
	var v sessionView
	decode(t, rec, &v)
	if v.Seats[0].Student == nil || v.Seats[0].Student.ID != "1" || !v.Seats[0].Locked {
		t.Fatalf("seat 0 = %+v", v.Seats[0])
	}
	if len(v.Unassigned) != 2 {
		t.Fatalf("unassigned = %+v", v.Unassigned)
	}

	// the same student again is a warning
	rec = ts.do(t, http.MethodPost, base+"/drop", `{"target":1,"source":{"type":"roster","student_id":"1"}}`)
	expect(t, rec, http.StatusConflict)
	var warn struct {
		Error   string
		Warning bool
	}
	decode(t, rec, &warn)
	if !warn.Warning {
		t.Fatalf("body = %s", rec.Body.String())
	}

	expect(t, ts.do(t, http.MethodPost, base+"/drop", `{"target":1,"source":{"type":"roster","student_id":"99"}}`), http.StatusBadRequest)
	expect(t, ts.do(t, http.MethodPost, base+"/drop", `{"target":1,"source":{"type":"seat"}}`), http.StatusBadRequest)
	expect(t, ts.do(t, http.MethodPost, base+"/drop", `{"source":{"type":"seat","index":0}}`), http.StatusBadRequest)
	expect(t, ts.do(t, http.MethodPost, base+"/drop", `{"target":1,"source":{"type":"desk","index":0}}`), http.StatusBadRequest)

	// moving a locked student carries the lock along
	rec = ts.do(t, http.MethodPost, base+"/drop", `{"target":4,"source":{"type":"seat","index":0}}`)
	expect(t, rec, http.StatusOK)
	decode(t, rec, &v)
	if v.Seats[0].Student != nil || v.Seats[0].Locked || !v.Seats[4].Locked || v.Seats[4].Student.ID != "1" {
		t.Fatalf("after move: %+v / %+v", v.Seats[0], v.Seats[4])
	}

	// lock rules
	expect(t, ts.do(t, http.MethodPost, base+"/seats/0/lock", ""), http.StatusConflict)
	expect(t, ts.do(t, http.MethodPost, base+"/seats/9/lock", ""), http.StatusBadRequest)
	expect(t, ts.do(t, http.MethodPost, base+"/seats/x/lock", ""), http.StatusBadRequest)
	expect(t, ts.do(t, http.MethodDelete, base+"/seats/4/lock", ""), http.StatusOK)
	rec = ts.do(t, http.MethodPost, base+"/seats/4/lock/toggle", "")
	expect(t, rec, http.StatusOK)
	decode(t, rec, &v)
	if !v.Seats[4].Locked {
		t.Fatal("toggle should lock seat 4")
	}

	// disabling an occupied seat frees the student
	rec = ts.do(t, http.MethodPost, base+"/seats/4/disable", "")
	expect(t, rec, http.StatusOK)
	decode(t, rec, &v)
	if !v.Seats[4].Disabled || v.Seats[4].Student != nil || v.Seats[4].Locked || v.Summary.Disabled != 1 {
		t.Fatalf("seat 4 = %+v", v.Seats[4])
	}
	expect(t, ts.do(t, http.MethodPost, base+"/drop", `{"target":4,"source":{"type":"roster","student_id":"2"}}`), http.StatusConflict)
	expect(t, ts.do(t, http.MethodDelete, base+"/seats/4/disable", ""), http.StatusOK)
	rec = ts.do(t, http.MethodPost, base+"/seats/4/disable/toggle", "")
	decode(t, rec, &v)
	if !v.Seats[4].Disabled {
		t.Fatal("toggle should disable seat 4")
	}

	// unassign
	ts.do(t, http.MethodPost, base+"/drop", `{"target":2,"source":{"type":"roster","student_id":"3"}}`)
	rec = ts.do(t, http.MethodDelete, base+"/seats/2", "")
	expect(t, rec, http.StatusOK)
	decode(t, rec, &v)
	if v.Seats[2].Student != nil || v.Seats[2].Locked {
		t.Fatalf("seat 2 = %+v", v.Seats[2])
	}
}

func TestOrientationAndResize(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, 6, 5, classCSV)
	base := "/v1/sessions/" + id

	ts.do(t, http.MethodPost, base+"/drop", `{"target":25,"source":{"type":"roster","student_id":"1"}}`)
	ts.do(t, http.MethodPost, base+"/seats/3/disable", "")

	rec := ts.do(t, http.MethodPut, base+"/orientation", `{"orientation":"far"}`)
	expect(t, rec, http.StatusOK)
	var v sessionView
	decode(t, rec, &v)
	// near (col 0,row 0) is display 25; far puts it at 4
	if v.Seats[4].Student == nil || v.Seats[4].Student.ID != "1" || !v.Seats[4].Locked {
		t.Fatalf("seat 4 = %+v", v.Seats[4])
	}
	// near display 3 is (col 3,row 5); far puts it at 5*5+1
	if !v.Seats[26].Disabled || v.Summary.Disabled != 1 {
		t.Fatalf("disabled seat not translated: %+v", v.Seats[26])
	}
	expect(t, ts.do(t, http.MethodPut, base+"/orientation", `{"orientation":"sideways"}`), http.StatusBadRequest)

	rec = ts.do(t, http.MethodPut, base+"/dimensions", `{"rows":3,"cols":4}`)
	expect(t, rec, http.StatusOK)
	decode(t, rec, &v)
	if len(v.Seats) != 12 || v.Summary.Occupied != 0 || v.Summary.Disabled != 0 || len(v.Roster) != 3 {
		t.Fatalf("after resize: %+v", v.Summary)
	}
	expect(t, ts.do(t, http.MethodPut, base+"/dimensions", `{"rows":3,"cols":20}`), http.StatusBadRequest)

	rec = ts.do(t, http.MethodGet, base+"/chart", "")
	expect(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "3 rows × 4 cols") {
		t.Fatalf("chart = %s", rec.Body.String())
	}
}

func genderCSV(males, females int) string {
	var sb strings.Builder
	for i := 0; i < males; i++ {
		fmt.Fprintf(&sb, "m%d,Boy %d,男\n", i, i)
	}
	for i := 0; i < females; i++ {
		fmt.Fprintf(&sb, "f%d,Girl %d,女\n", i, i)
	}
	return sb.String()
}

func TestArrange(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, 6, 5, genderCSV(15, 15))
	base := "/v1/sessions/" + id

	expect(t, ts.do(t, http.MethodPost, base+"/arrange", `{"mode":"sorted"}`), http.StatusBadRequest)

	rec := ts.do(t, http.MethodPost, base+"/arrange", `{"mode":"random"}`)
	expect(t, rec, http.StatusOK)
	var out struct {
		Message string
		Report  seating.Report
		Session sessionView
	}
	decode(t, rec, &out)
	if out.Message != "已完成隨機排座" || out.Report.Placed != 30 || out.Session.Summary.Occupied != 30 {
		t.Fatalf("arrange = %+v", out)
	}

	select {
	case ev := <-ts.events:
		if ev.SessionID != id || ev.OwnerID != 1 || ev.Placed != 30 || ev.Strategy != "random" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no arrangement event published")
	}
}

func TestArrangeCapacity(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, 2, 2, classCSV)
	ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/seats/0/disable", "")
	ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/seats/1/disable", "")

	rec := ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/arrange", `{"mode":"random"}`)
	expect(t, rec, http.StatusUnprocessableEntity)

	empty := ts.createSession(t, 2, 2, "")
	expect(t, ts.do(t, http.MethodPost, "/v1/sessions/"+empty+"/arrange", `{"mode":"gender"}`), http.StatusBadRequest)
}

func TestArrangeGenderConflicts(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, 6, 5, genderCSV(15, 15))
	base := "/v1/sessions/" + id

	// lock girls at logical rows 0 and 1 of the first room-row; whichever
	// gender the pattern starts with, one of them conflicts
	ts.do(t, http.MethodPost, base+"/drop", `{"target":25,"source":{"type":"roster","student_id":"f0"}}`)
	ts.do(t, http.MethodPost, base+"/drop", `{"target":20,"source":{"type":"roster","student_id":"f1"}}`)

	rec := ts.do(t, http.MethodPost, base+"/arrange", `{"mode":"gender"}`)
	expect(t, rec, http.StatusConflict)
	var refused struct {
		Conflicts []seating.Conflict
		Messages  []string
	}
	decode(t, rec, &refused)
	if len(refused.Conflicts) != 1 || len(refused.Messages) != 1 {
		t.Fatalf("refused = %s", rec.Body.String())
	}

	// nothing changed
	var v sessionView
	decode(t, ts.do(t, http.MethodGet, base, ""), &v)
	if v.Summary.Occupied != 2 {
		t.Fatalf("occupied after cancel = %d", v.Summary.Occupied)
	}

	rec = ts.do(t, http.MethodPost, base+"/arrange", `{"mode":"gender","force":true}`)
	expect(t, rec, http.StatusOK)
	var out struct {
		Message string
		Report  seating.Report
	}
	decode(t, rec, &out)
	if out.Report.Preserved != 2 || len(out.Report.Conflicts) != 1 || out.Message != "已完成男女隔開排座（保留 2 個鎖定座位）" {
		t.Fatalf("forced = %s", rec.Body.String())
	}
	ev := <-ts.events
	if !ev.Forced || len(ev.Conflicts) != 1 {
		t.Fatalf("event = %+v", ev)
	}
}

func TestClear(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, 2, 2, classCSV)
	base := "/v1/sessions/" + id
	ts.do(t, http.MethodPost, base+"/arrange", `{"mode":"random"}`)

	var v sessionView
	decode(t, ts.do(t, http.MethodPost, base+"/clear", `{}`), &v)
	if v.Summary.Occupied != 0 || len(v.Roster) != 3 {
		t.Fatalf("clear seats: %+v", v.Summary)
	}
	decode(t, ts.do(t, http.MethodPost, base+"/clear", `{"all":true}`), &v)
	if len(v.Roster) != 0 {
		t.Fatalf("clear all left roster %+v", v.Roster)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, 3, 3, classCSV)
	base := "/v1/sessions/" + id
	ts.do(t, http.MethodPost, base+"/drop", `{"target":4,"source":{"type":"roster","student_id":"2"}}`)
	ts.do(t, http.MethodPost, base+"/seats/8/disable", "")

	rec := ts.do(t, http.MethodGet, base+"/snapshot", "")
	expect(t, rec, http.StatusOK)
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") || !strings.HasSuffix(cd, ".json") {
		t.Fatalf("content disposition = %q", cd)
	}
	exported := rec.Body.String()

	other := ts.createSession(t, 2, 2, "")
	rec = ts.do(t, http.MethodPut, "/v1/sessions/"+other+"/snapshot", exported)
	expect(t, rec, http.StatusOK)
	var v sessionView
	decode(t, rec, &v)
	if len(v.Seats) != 9 || !v.Seats[4].Locked || v.Seats[4].Student.ID != "2" || !v.Seats[8].Disabled || len(v.Roster) != 3 {
		t.Fatalf("imported = %+v", v)
	}

	// a malformed file leaves the session alone
	expect(t, ts.do(t, http.MethodPut, "/v1/sessions/"+other+"/snapshot", `{"rows":99,"cols":2}`), http.StatusBadRequest)
	decode(t, ts.do(t, http.MethodGet, "/v1/sessions/"+other, ""), &v)
	if len(v.Seats) != 9 {
		t.Fatalf("session changed by bad import: %d seats", len(v.Seats))
	}
}

func TestWatchWithoutHub(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, 2, 2, "")
	expect(t, ts.do(t, http.MethodGet, "/v1/sessions/"+id+"/ws", ""), http.StatusServiceUnavailable)
	expect(t, ts.do(t, http.MethodGet, "/v1/sessions/missing/ws", ""), http.StatusNotFound)
}

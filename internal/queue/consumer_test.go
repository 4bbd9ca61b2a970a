package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandleMessageAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	ev := ArrangementCompletedEvent{
		OwnerID:     4,
		SessionID:   "abc",
		Mode:        "gender",
		Strategy:    "gender",
		Rows:        6,
		Cols:        5,
		Preserved:   1,
		Placed:      29,
		Conflicts:   []string{"第1排第2個座位：應為 女生，但鎖定了 男生"},
		Forced:      true,
		CompletedAt: "2024-03-09T08:00:00Z",
	}
	body, _ := json.Marshal(ev)
	for i := 0; i < 2; i++ {
		if err := handleMessage(dir, body); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, ArrangementLogFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	want := "[2024-03-09T08:00:00Z] Arrangement completed | owner_id=4 | session=abc | mode=gender | strategy=gender | grid=6x5 | preserved=1 | placed=29 | unplaced=0 | forced=true | conflicts=[第1排第2個座位：應為 女生，但鎖定了 男生]"
	if lines[0] != want {
		t.Fatalf("line =\n%s\nwant\n%s", lines[0], want)
	}
}

func TestHandleMessageRejects(t *testing.T) {
	dir := t.TempDir()
	for _, body := range []string{`{`, `{"owner_id":1}`} {
		if err := handleMessage(dir, []byte(body)); err == nil {
			t.Fatalf("%s: expected error", body)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ArrangementLogFile)); !os.IsNotExist(err) {
		t.Fatalf("log file should not exist, stat err = %v", err)
	}
}

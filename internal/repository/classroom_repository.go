package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/classroom-seating/internal/model"
)

// ClassroomRepo stores named seating charts per teacher.
type ClassroomRepo struct {
	db *sql.DB
}

func NewClassroomRepo(db *sql.DB) *ClassroomRepo {
	return &ClassroomRepo{db: db}
}

// Save inserts the classroom or, when the owner already has one with the same
// name, overwrites its chart. c.ID, CreatedAt and UpdatedAt are filled in
// from the stored row.
func (r *ClassroomRepo) Save(ctx context.Context, c *model.Classroom) error {
	// LAST_INSERT_ID(id) makes the update branch report the existing id
	const qUpsert = "INSERT INTO classrooms (owner_id, name, `rows`, cols, students, snapshot) VALUES (?, ?, ?, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), `rows` = VALUES(`rows`), cols = VALUES(cols), " +
		"students = VALUES(students), snapshot = VALUES(snapshot)"
	res, err := r.db.ExecContext(ctx, qUpsert, c.OwnerID, c.Name, c.Rows, c.Cols, c.Students, []byte(c.Snapshot))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)

	const qSelect = "SELECT created_at, updated_at FROM classrooms WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// ListByOwner returns the owner's classrooms newest first, without their
// snapshots.
func (r *ClassroomRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Classroom, error) {
	const q = "SELECT id, owner_id, name, `rows`, cols, students, created_at, updated_at " +
		"FROM classrooms WHERE owner_id = ? ORDER BY updated_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Classroom{}
	for rows.Next() {
		var c model.Classroom
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Rows, &c.Cols, &c.Students, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByIDAndOwner loads one classroom including its snapshot.
func (r *ClassroomRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Classroom, error) {
	const q = "SELECT id, owner_id, name, `rows`, cols, students, snapshot, created_at, updated_at " +
		"FROM classrooms WHERE id = ? AND owner_id = ?"
	var (
		c    model.Classroom
		snap []byte
	)
	err := r.db.QueryRowContext(ctx, q, id, ownerID).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.Rows, &c.Cols, &c.Students, &snap, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClassroomNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Snapshot = snap
	return &c, nil
}

// Delete removes a classroom owned by ownerID.
func (r *ClassroomRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM classrooms WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClassroomNotFound
	}
	return nil
}

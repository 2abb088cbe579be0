package database

import (
	"context"

	"github.com/google/uuid"
)

const createChild = `-- name: CreateChild :one
INSERT INTO children (user_id, name, class_name)
VALUES ($1, $2, $3)
RETURNING id, user_id, name, class_name, created_at`

type CreateChildParams struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	ClassName string    `json:"class_name"`
}

func (q *Queries) CreateChild(ctx context.Context, arg CreateChildParams) (Child, error) {
	row := q.db.QueryRow(ctx, createChild, arg.UserID, arg.Name, arg.ClassName)
	var i Child
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.ClassName,
		&i.CreatedAt,
	)
	return i, err
}

const getChild = `-- name: GetChild :one
SELECT id, user_id, name, class_name, created_at FROM children
WHERE id = $1 AND user_id = $2`

type GetChildParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) GetChild(ctx context.Context, arg GetChildParams) (Child, error) {
	row := q.db.QueryRow(ctx, getChild, arg.ID, arg.UserID)
	var i Child
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.ClassName,
		&i.CreatedAt,
	)
	return i, err
}

const listChildrenByUser = `-- name: ListChildrenByUser :many
SELECT id, user_id, name, class_name, created_at FROM children
WHERE user_id = $1
ORDER BY name`

func (q *Queries) ListChildrenByUser(ctx context.Context, userID uuid.UUID) ([]Child, error) {
	rows, err := q.db.Query(ctx, listChildrenByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Child{}
	for rows.Next() {
		var i Child
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Name,
			&i.ClassName,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateChild = `-- name: UpdateChild :one
UPDATE children SET name = $3, class_name = $4
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, name, class_name, created_at`

type UpdateChildParams struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	ClassName string    `json:"class_name"`
}

func (q *Queries) UpdateChild(ctx context.Context, arg UpdateChildParams) (Child, error) {
	row := q.db.QueryRow(ctx, updateChild, arg.ID, arg.UserID, arg.Name, arg.ClassName)
	var i Child
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.ClassName,
		&i.CreatedAt,
	)
	return i, err
}

const deleteChild = `-- name: DeleteChild :execrows
DELETE FROM children
WHERE id = $1 AND user_id = $2
  AND NOT EXISTS (SELECT 1 FROM order_line_items WHERE child_id = $1)`

type DeleteChildParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

// DeleteChild removes a child that has never been ordered for.
func (q *Queries) DeleteChild(ctx context.Context, arg DeleteChildParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteChild, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

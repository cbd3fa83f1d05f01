// This file implements the activities table accessor for the SQLite backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/crm/pkg/types"
)

var _ types.ActivityTable = (*activitiesTable)(nil)

const activityColumns = "activity_id, client_id, kind, title, description, occurred_at, completed, responsible, notes"

// activitiesTable implements types.ActivityTable.
type activitiesTable struct {
	backend *Backend
}

// Create logs an activity for an existing client. OccurredAt defaults to now.
func (at *activitiesTable) Create(ctx context.Context, clientID string, in types.ActivityInput) (*types.Activity, error) {
	if clientID == "" {
		return nil, types.ErrInvalidID
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	db, ctx, cancel, err := at.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	a := &types.Activity{
		ActivityID:  newID(prefixActivity),
		ClientID:    clientID,
		Kind:        in.Kind,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		OccurredAt:  time.Now().UTC(),
		Completed:   in.Completed,
		Responsible: in.Responsible,
		Notes:       in.Notes,
	}
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		a.OccurredAt = in.OccurredAt.UTC()
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO activities ("+activityColumns+") VALUES ("+placeholders(9)+")",
		a.ActivityID, a.ClientID, a.Kind, a.Title, nullString(a.Description),
		formatTime(a.OccurredAt), boolArg(a.Completed), nullString(a.Responsible), nullString(a.Notes),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting activity: %w", translateErr(err))
	}
	return a, nil
}

// List returns at most limit activities of a client, newest first.
func (at *activitiesTable) List(ctx context.Context, clientID string, limit int) ([]*types.Activity, error) {
	if limit <= 0 {
		limit = types.ActivityListLimit
	}
	db, ctx, cancel, err := at.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return listActivities(ctx, db, clientID, limit)
}

func listActivities(ctx context.Context, q queryer, clientID string, limit int) ([]*types.Activity, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE client_id = ? ORDER BY occurred_at DESC, rowid DESC LIMIT ?",
		clientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	activities := []*types.Activity{}
	for rows.Next() {
		a, err := hydrateActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activities: %w", err)
	}
	return activities, nil
}

func hydrateActivity(row rowScanner) (*types.Activity, error) {
	var a types.Activity
	var description, responsible, notes sql.NullString
	var occurredAt string
	var completed int
	if err := row.Scan(&a.ActivityID, &a.ClientID, &a.Kind, &a.Title, &description,
		&occurredAt, &completed, &responsible, &notes); err != nil {
		return nil, err
	}
	a.Description = stringPtr(description)
	a.Responsible = stringPtr(responsible)
	a.Notes = stringPtr(notes)
	a.Completed = completed != 0
	var err error
	if a.OccurredAt, err = parseTime(occurredAt); err != nil {
		return nil, err
	}
	return &a, nil
}

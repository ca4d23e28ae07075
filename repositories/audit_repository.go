package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dop-amin/foosball-tracker/models"
)

type MatchAuditRepository interface {
	Create(ctx context.Context, audit *models.MatchAudit) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchAudit, error)
}

type postgresMatchAuditRepository struct {
	db *sql.DB
}

func NewPostgresMatchAuditRepository(db *sql.DB) MatchAuditRepository {
	return &postgresMatchAuditRepository{db: db}
}

func (r *postgresMatchAuditRepository) Create(ctx context.Context, audit *models.MatchAudit) error {
	query := `
		INSERT INTO match_audits (match_id, changes, summary)
		VALUES ($1, $2, $3)
		RETURNING id, edited_at`

	err := r.db.QueryRowContext(ctx, query, audit.MatchID, audit.Changes, audit.Summary).
		Scan(&audit.ID, &audit.EditedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry for match %d: %w", audit.MatchID, err)
	}
	return nil
}

func (r *postgresMatchAuditRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchAudit, error) {
	query := `
		SELECT id, match_id, edited_at, changes, summary
		FROM match_audits
		WHERE match_id = $1
		ORDER BY edited_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries for match %d: %w", matchID, err)
	}
	defer rows.Close()

	audits := make([]*models.MatchAudit, 0)
	for rows.Next() {
		var audit models.MatchAudit
		if scanErr := rows.Scan(
			&audit.ID,
			&audit.MatchID,
			&audit.EditedAt,
			&audit.Changes,
			&audit.Summary,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", scanErr)
		}
		audits = append(audits, &audit)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during audit rows iteration: %w", err)
	}
	return audits, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"proctored-quiz-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	Username        string    `bun:"username,pk"`
	PasswordHash    string    `bun:"password_hash,notnull"`
	Role            string    `bun:"role,notnull"`
	Email           string    `bun:"email,notnull"`
	PasswordChanges int       `bun:"password_changes,notnull"`
	Attempts        int       `bun:"attempts,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
}

// resultRow maps both quiz_results (global sink) and section_results (per-section sink).
type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results,alias:r"`

	Username       string    `bun:"username,notnull"`
	USN            string    `bun:"usn,notnull"`
	Section        string    `bun:"section,notnull"`
	QuizID         string    `bun:"quiz_id,notnull"`
	Score          int       `bun:"score,notnull"`
	Total          int       `bun:"total,notnull"`
	ElapsedSeconds int64     `bun:"elapsed_seconds,notnull"`
	SubmittedAt    time.Time `bun:"submitted_at,notnull"`
}

const sectionResultsTable = "section_results"

// UserStore is the Postgres credential store and result sink.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Lookup(ctx context.Context, username string) (domain.User, error) {
	return lookup(ctx, s.db, username)
}

func lookup(ctx context.Context, db bun.IDB, username string) (domain.User, error) {
	var row userRow
	err := db.NewSelect().Model(&row).Where("username = ?", username).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user %s: %w", username, err)
	}
	return row.toDomain(), nil
}

func (s *UserStore) Insert(ctx context.Context, user domain.User) error {
	row := userRow{
		Username:        user.Username,
		PasswordHash:    user.PasswordHash,
		Role:            string(user.Role),
		Email:           user.Email,
		PasswordChanges: user.PasswordChanges,
		Attempts:        user.Attempts,
		CreatedAt:       user.CreatedAt,
	}
	res, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (username) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", user.Username, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrDuplicateUsername
	}
	return nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, username, newHash string, maxChanges int) error {
	res, err := s.db.NewUpdate().Model((*userRow)(nil)).
		Set("password_hash = ?", newHash).
		Set("password_changes = password_changes + 1").
		Where("username = ?", username).
		Where("password_changes < ?", maxChanges).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update password for %s: %w", username, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := lookup(ctx, s.db, username); err != nil {
			return err
		}
		return domain.ErrChangeLimitExceeded
	}
	return nil
}

// CommitAttempt increments the attempt counter and appends the result to both sinks in one transaction.
func (s *UserStore) CommitAttempt(ctx context.Context, result domain.QuizResult, maxAttempts int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*userRow)(nil)).
			Set("attempts = attempts + 1").
			Where("username = ?", result.Username).
			Where("attempts < ?", maxAttempts).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("increment attempts: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			if _, err := lookup(ctx, tx, result.Username); err != nil {
				return err
			}
			return domain.ErrAttemptsExhausted
		}

		row := toResultRow(result)
		if _, err := tx.NewInsert().Model(&row).Returning("NULL").Exec(ctx); err != nil {
			return fmt.Errorf("append global result: %w", err)
		}
		if result.Section != "" {
			if _, err := tx.NewInsert().Model(&row).ModelTableExpr(sectionResultsTable).Returning("NULL").Exec(ctx); err != nil {
				return fmt.Errorf("append section result: %w", err)
			}
		}
		return nil
	})
}

func (s *UserStore) Results(ctx context.Context, section string) ([]domain.QuizResult, error) {
	var rows []resultRow
	q := s.db.NewSelect().Model(&rows)
	if section != "" {
		q = q.ModelTableExpr(sectionResultsTable+" AS r").Where("section = ?", section)
	}
	if err := q.Order("submitted_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]domain.QuizResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		Username:        r.Username,
		PasswordHash:    r.PasswordHash,
		Role:            domain.Role(r.Role),
		Email:           r.Email,
		PasswordChanges: r.PasswordChanges,
		Attempts:        r.Attempts,
		CreatedAt:       r.CreatedAt,
	}
}

func toResultRow(r domain.QuizResult) resultRow {
	return resultRow{
		Username:       r.Username,
		USN:            r.USN,
		Section:        r.Section,
		QuizID:         r.QuizID,
		Score:          r.Score,
		Total:          r.Total,
		ElapsedSeconds: r.ElapsedSeconds(),
		SubmittedAt:    r.SubmittedAt,
	}
}

func (r resultRow) toDomain() domain.QuizResult {
	return domain.QuizResult{
		Username:    r.Username,
		USN:         r.USN,
		Section:     r.Section,
		QuizID:      r.QuizID,
		Score:       r.Score,
		Total:       r.Total,
		Elapsed:     time.Duration(r.ElapsedSeconds) * time.Second,
		SubmittedAt: r.SubmittedAt,
	}
}

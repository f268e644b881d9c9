package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rezonia/ksef-sync/internal/model"
)

func (p *Postgres) GetByID(ctx context.Context, id int64) (*model.Entity, error) {
	var entity model.Entity
	err := p.db.GetContext(ctx, &entity,
		`SELECT id, name, tax_id, ksef_identifier, ksef_token, ksef_token_expiry, ksef_environment, is_active
		 FROM entities WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return &entity, nil
}

func (p *Postgres) UpdateToken(ctx context.Context, id int64, token string, expiry time.Time) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE entities SET ksef_token = $1, ksef_token_expiry = $2 WHERE id = $3`,
		token, expiry, id)
	if err != nil {
		return fmt.Errorf("update entity token: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("entity %d: %w", id, model.ErrNotFound)
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/database"
)

var _ database.ResponderRepository = (*ResponderRepo)(nil)

type ResponderRepo struct {
	db *sql.DB
}

func NewResponderRepo(db *sql.DB) *ResponderRepo {
	return &ResponderRepo{db: db}
}

func (r *ResponderRepo) ListActive(ctx context.Context) ([]domain.Responder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, latitude, longitude FROM responders WHERE active ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Responder
	for rows.Next() {
		var rs domain.Responder
		if err := rows.Scan(&rs.ID, &rs.Name, &rs.Location.Lat, &rs.Location.Lon); err != nil {
			return nil, err
		}
		results = append(results, rs)
	}
	return results, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CatalogRepository reads and seeds the software catalog.
type CatalogRepository interface {
	FindByNames(ctx context.Context, names []string) (map[string][]string, error)
	Search(ctx context.Context, term string) (map[string][]string, error)
	ListNames(ctx context.Context, limit int) ([]string, error)
	Upsert(ctx context.Context, name string, versions []string) error
}

type catalogRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewCatalogRepository returns a database/sql backed CatalogRepository.
func NewCatalogRepository(db *sql.DB, dialect Dialect) CatalogRepository {
	return &catalogRepository{db: db, dialect: dialect}
}

func (r *catalogRepository) FindByNames(ctx context.Context, names []string) (map[string][]string, error) {
	args := make([]any, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			args = append(args, n)
		}
	}
	if len(args) == 0 {
		return map[string][]string{}, nil
	}
	query := fmt.Sprintf(`SELECT name, version FROM software WHERE LOWER(name) IN (%s)`, placeholders(len(args)))
	return r.collect(ctx, query, args...)
}

func (r *catalogRepository) Search(ctx context.Context, term string) (map[string][]string, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return map[string][]string{}, nil
	}
	const query = `SELECT name, version FROM software WHERE LOWER(name) LIKE ? ESCAPE '\'`
	return r.collect(ctx, query, "%"+likeEscaper.Replace(term)+"%")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *catalogRepository) ListNames(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT DISTINCT name FROM software ORDER BY name LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), limit)
	if err != nil {
		return nil, storeErr("list software", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeErr("scan software", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list software", err)
	}
	return names, nil
}

func (r *catalogRepository) Upsert(ctx context.Context, name string, versions []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("software name is required")
	}
	const query = `INSERT INTO software (name, version) VALUES (?, ?) ON CONFLICT (name, version) DO NOTHING`
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, v := range versions {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, r.dialect.Rebind(query), name, v); err != nil {
				return storeErr("upsert software", err)
			}
		}
		return nil
	})
}

func (r *catalogRepository) collect(ctx context.Context, query string, args ...any) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, storeErr("query software", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var name, version string
		if err := rows.Scan(&name, &version); err != nil {
			return nil, storeErr("scan software", err)
		}
		out[name] = append(out[name], version)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query software", err)
	}
	return out, nil
}

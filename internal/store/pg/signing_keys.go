// Package pg persiste la tabla de signing keys en Postgres. Es un colaborador
// de bootstrap/write-through: el registro en memoria sigue siendo la fuente de
// verdad en runtime y la distribución cross-process de la configuración es
// responsabilidad externa.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/keysmith/internal/keyring"
)

type Store struct {
	pool *pgxpool.Pool
}

// Open conecta el pool y verifica la conexión.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// LoadKeys carga el ring completo en orden de creación, más el kid activo.
func (s *Store) LoadKeys(ctx context.Context) ([]keyring.Key, string, error) {
	const q = `
SELECT kid, alg, material, active, retired_at
FROM signing_keys
ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []keyring.Key
	var activeKID string
	for rows.Next() {
		var k keyring.Key
		var active bool
		var retiredAt *time.Time
		if err := rows.Scan(&k.KID, &k.Alg, &k.Material, &active, &retiredAt); err != nil {
			return nil, "", err
		}
		k.RetiredAt = retiredAt
		if active {
			activeKID = k.KID
		}
		out = append(out, k)
	}
	return out, activeKID, rows.Err()
}

// IntroduceKeyTx refleja la rotación manual: desactiva y marca el retiro de la
// activa anterior, e inserta la nueva como activa, en una sola tx.
func (s *Store) IntroduceKeyTx(ctx context.Context, k keyring.Key) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	{
		const q = `UPDATE signing_keys SET active = false, retired_at = now() WHERE active`
		if _, err := tx.Exec(ctx, q); err != nil {
			return err
		}
	}
	{
		const q = `
INSERT INTO signing_keys (kid, alg, material, active, created_at)
VALUES ($1, $2, $3, true, now())`
		if _, err := tx.Exec(ctx, q, k.KID, k.Alg, k.Material); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

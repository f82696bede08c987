// Package pg bootstraps PostgreSQL access over pgx/v5.
//
// Config is read from PG_* environment variables. Connect opens a pgxpool
// and pings it, retrying on startup. Migrate runs goose migrations from an
// embedded filesystem through a database/sql handle that shares the pool.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, ".", cfg, log); err != nil {
//		return err
//	}
//
// The error helpers classify pgx errors (no rows, unique and foreign key
// violations) so repositories can map them onto their own sentinels.
package pg

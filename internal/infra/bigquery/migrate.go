package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations returns the migration files shipped with the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migration represents a single migration file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Pattern to match migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// ReadMigrations parses every migration in fsys, fills in the table
// placeholders, and returns them sorted by version.
func ReadMigrations(fsys fs.FS, ref TableRef, log zerolog.Logger) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("ReadMigrations: reading directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			log.Warn().Str("file", entry.Name()).Msg("Skipping file with invalid format")
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			log.Warn().Str("file", entry.Name()).Msg("Skipping file with invalid version")
			continue
		}

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("ReadMigrations: reading %s: %w", entry.Name(), err)
		}

		sql := strings.NewReplacer(
			"{{PROJECT_ID}}", ref.Project,
			"{{DATASET_ID}}", ref.Dataset,
			"{{TABLE_ID}}", ref.Table,
		).Replace(string(content))

		// The checksum covers the file before substitution so the same
		// migration matches across projects.
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// PendingMigrations returns the migrations whose version is not yet applied.
func PendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}

	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// ApplyMigrationsWithClient runs every pending migration in order and records
// each one in schema_migrations. It returns the number applied.
func ApplyMigrationsWithClient(ctx context.Context, client *bigquery.Client, ref TableRef, migrations []Migration, appliedBy string, log zerolog.Logger) (int, error) {
	if err := ensureSchemaMigrationsTable(ctx, client, ref); err != nil {
		return 0, fmt.Errorf("ApplyMigrations: ensure schema_migrations: %w", err)
	}

	applied, err := appliedMigrations(ctx, client, ref)
	if err != nil {
		return 0, fmt.Errorf("ApplyMigrations: %w", err)
	}

	pending := PendingMigrations(migrations, applied)
	log.Info().
		Int("total", len(migrations)).
		Int("applied", len(applied)).
		Int("pending", len(pending)).
		Msg("Migration status")

	for i, m := range pending {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Running migration")

		if err := runStatement(ctx, client.Query(m.SQL)); err != nil {
			return i, fmt.Errorf("ApplyMigrations: %04d_%s: %w", m.Version, m.Name, err)
		}
		if err := recordMigration(ctx, client, ref, m, appliedBy); err != nil {
			return i, fmt.Errorf("ApplyMigrations: record %04d_%s: %w", m.Version, m.Name, err)
		}
	}

	return len(pending), nil
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, ref TableRef) error {
	q := client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, ref.Project, ref.Dataset))
	return runStatement(ctx, q)
}

func appliedMigrations(ctx context.Context, client *bigquery.Client, ref TableRef) ([]AppliedMigration, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM `+"`%s.%s.schema_migrations`"+`
		ORDER BY version ASC
	`, ref.Project, ref.Dataset))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, ref TableRef, m Migration, appliedBy string) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, ref.Project, ref.Dataset))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return runStatement(ctx, q)
}

// runStatement runs q and waits for the job to finish.
func runStatement(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

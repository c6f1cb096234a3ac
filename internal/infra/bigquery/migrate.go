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
	"github.com/dvloznov/bizledger/internal/logger"
	"google.golang.org/api/iterator"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations returns the schema migrations shipped with the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migration is a single versioned DDL file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// migrationPattern matches 0001_name.sql.
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// ParseMigrationFilename splits a migration filename into version and name.
func ParseMigrationFilename(filename string) (int, string, bool) {
	matches := migrationPattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// ReadMigrations loads every migration in dir sorted by version, with the
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders substituted. The checksum
// covers the file as written, so it is stable across datasets.
func ReadMigrations(dir fs.FS, projectID, datasetID string) ([]Migration, error) {
	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return nil, fmt.Errorf("ReadMigrations: reading directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, ok := ParseMigrationFilename(entry.Name())
		if !ok {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("ReadMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(dir, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("ReadMigrations: reading %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
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

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Pending returns the migrations whose version has not been applied. A
// recorded checksum that no longer matches the file is an error: applied
// migrations must not be edited.
func Pending(all []Migration, applied []AppliedMigration) ([]Migration, error) {
	done := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		done[am.Version] = am
	}

	var pending []Migration
	for _, m := range all {
		am, ok := done[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if am.Checksum != "" && am.Checksum != m.Checksum {
			return nil, fmt.Errorf("Pending: migration %04d_%s changed after it was applied", m.Version, m.Name)
		}
	}
	return pending, nil
}

// MigrateWithClient applies every pending migration in dir to the dataset
// and records each one in schema_migrations. It returns the number applied.
func MigrateWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, dir fs.FS, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	if err := ensureSchemaMigrationsTable(ctx, client, projectID, datasetID); err != nil {
		return 0, fmt.Errorf("MigrateWithClient: schema_migrations: %w", err)
	}

	all, err := ReadMigrations(dir, projectID, datasetID)
	if err != nil {
		return 0, fmt.Errorf("MigrateWithClient: %w", err)
	}
	applied, err := getAppliedMigrations(ctx, client, projectID, datasetID)
	if err != nil {
		return 0, fmt.Errorf("MigrateWithClient: %w", err)
	}
	pending, err := Pending(all, applied)
	if err != nil {
		return 0, fmt.Errorf("MigrateWithClient: %w", err)
	}

	log.Info().
		Int("found", len(all)).
		Int("applied", len(applied)).
		Int("pending", len(pending)).
		Msg("Checked schema migrations")

	for i, m := range pending {
		if _, err := runDML(ctx, client.Query(m.SQL)); err != nil {
			return i, fmt.Errorf("MigrateWithClient: %04d_%s: %w", m.Version, m.Name, err)
		}
		if err := recordMigration(ctx, client, projectID, datasetID, m, appliedBy); err != nil {
			return i, fmt.Errorf("MigrateWithClient: recording %04d_%s: %w", m.Version, m.Name, err)
		}
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
	}
	return len(pending), nil
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, projectID, datasetID string) error {
	q := client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, projectID, datasetID))
	_, err := runDML(ctx, q)
	return err
}

func getAppliedMigrations(ctx context.Context, client *bigquery.Client, projectID, datasetID string) ([]AppliedMigration, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM `+"`%s.%s.schema_migrations`"+`
		ORDER BY version ASC
	`, projectID, datasetID))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
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

func recordMigration(ctx context.Context, client *bigquery.Client, projectID, datasetID string, m Migration, appliedBy string) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, projectID, datasetID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	_, err := runDML(ctx, q)
	return err
}

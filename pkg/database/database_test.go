package database

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"

	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
)

func quietLogger() logging.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSplitStatements(t *testing.T) {
	got := SplitStatements("CREATE TABLE a (x INT);\n\n  ;CREATE INDEX b ON a (x);\n")
	if len(got) != 2 || got[0] != "CREATE TABLE a (x INT)" || got[1] != "CREATE INDEX b ON a (x)" {
		t.Fatalf("unexpected statements %q", got)
	}
}

func TestApplySchemaRunsFilesInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	fsys := fstest.MapFS{
		"pg/002_b.sql":  {Data: []byte("CREATE TABLE b (id INT);")},
		"pg/001_a.sql":  {Data: []byte("CREATE TABLE a (id INT);\nCREATE INDEX a_id ON a (id);")},
		"pg/README.md":  {Data: []byte("ignored")},
		"other/0_x.sql": {Data: []byte("DROP TABLE a;")},
	}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX a_id ON a (id)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := applySchemaFS(context.Background(), db, fsys, "pg", quietLogger()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplySchemaStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	fsys := fstest.MapFS{
		"pg/001_a.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"pg/002_b.sql": {Data: []byte("CREATE TABLE b (id INT);")},
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a")).WillReturnError(errors.New("permission denied"))

	err = applySchemaFS(context.Background(), db, fsys, "pg", quietLogger())
	if err == nil || !strings.Contains(err.Error(), "001_a.sql") {
		t.Fatalf("expected error naming the file, got %v", err)
	}
}

func TestEmbeddedSchemasDeclareReadModelTables(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherFunc(func(_, actual string) error {
		for _, table := range []string{"influencers", "campaign_schedules", "schedule_objectives", "content_metrics"} {
			if strings.Contains(actual, table) {
				return nil
			}
		}
		return errors.New("statement touches no known table: " + actual)
	})))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 6; i++ {
		mock.ExpectExec("").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := ApplySchema(context.Background(), db, PostgresSchema, quietLogger()); err != nil {
		t.Fatalf("postgres schema: %v", err)
	}
	if err := ApplySchema(context.Background(), db, ClickHouseSchema, quietLogger()); err != nil {
		t.Fatalf("clickhouse schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(context.Background(), Config{}, quietLogger()); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

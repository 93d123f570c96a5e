package database_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gosearch/internal/database"
)

func newSearchLogRepo(t *testing.T) (*database.SearchLogRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(mockDB, "postgres")
	repo := database.NewSearchLogRepository(db)

	return repo, mock, func() { mockDB.Close() }
}

func TestSearchLogRepository_LogSearch(t *testing.T) {
	repo, mock, cleanup := newSearchLogRepo(t)
	defer cleanup()

	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO search_logs").
		WithArgs("  Ｇｏ  Search ", "go search").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.LogSearch(ctx, "  Ｇｏ  Search ", "go search")
	if err != nil {
		t.Fatalf("LogSearch() error = %v", err)
	}
	if id != 42 {
		t.Errorf("expected id=42, got %d", id)
	}

	expectationsMet(t, mock)
}

func TestSearchLogRepository_LogSearch_Failure(t *testing.T) {
	repo, mock, cleanup := newSearchLogRepo(t)
	defer cleanup()

	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO search_logs").
		WithArgs("q", "q").
		WillReturnError(sqlmock.ErrCancelled)

	if _, err := repo.LogSearch(ctx, "q", "q"); err == nil {
		t.Fatal("LogSearch() expected error, got nil")
	}

	expectationsMet(t, mock)
}

func TestSearchLogRepository_LogClick(t *testing.T) {
	repo, mock, cleanup := newSearchLogRepo(t)
	defer cleanup()

	ctx := context.Background()

	mock.ExpectExec("INSERT INTO click_logs").
		WithArgs(int64(42), "https://example.com/result", 3).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.LogClick(ctx, 42, "https://example.com/result", 3); err != nil {
		t.Fatalf("LogClick() error = %v", err)
	}

	expectationsMet(t, mock)
}

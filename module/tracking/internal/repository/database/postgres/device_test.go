package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

var deviceColumnNames = []string{"id", "name", "status", "reported_lat", "reported_lon", "last_seen_at"}

func TestDeviceGet_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	seen := time.Unix(1715003456, 0)
	mock.ExpectQuery(`FROM devices WHERE id`).
		WithArgs("dev-1").
		WillReturnRows(sqlmock.NewRows(deviceColumnNames).AddRow("dev-1", "Ambulance 7", "online", 12.97, 77.59, seen))

	repo := NewDeviceRepo(db)
	d, err := repo.Get(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "Ambulance 7" || d.Status != domain.DeviceOnline {
		t.Errorf("unexpected device %+v", d)
	}
	if d.ReportedLocation == nil || d.ReportedLocation.Lat != 12.97 {
		t.Errorf("unexpected location %+v", d.ReportedLocation)
	}
	if d.LastSeenAt == nil || !d.LastSeenAt.Equal(seen) {
		t.Errorf("unexpected last seen %v", d.LastSeenAt)
	}
}

func TestDeviceGet_NoReportedLocation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM devices WHERE id`).
		WithArgs("dev-1").
		WillReturnRows(sqlmock.NewRows(deviceColumnNames).AddRow("dev-1", "Tracker", "offline", nil, nil, nil))

	repo := NewDeviceRepo(db)
	d, err := repo.Get(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ReportedLocation != nil || d.LastSeenAt != nil {
		t.Errorf("expected no location and no last seen, got %+v", d)
	}
}

func TestDeviceGet_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM devices WHERE id`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(deviceColumnNames))

	repo := NewDeviceRepo(db)
	if _, err := repo.Get(context.Background(), "ghost"); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestUpsertTelemetry_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	seen := time.Unix(1715003456, 0)
	mock.ExpectQuery(`INSERT INTO devices`).
		WithArgs("dev-1", 12.97, 77.59, seen).
		WillReturnRows(sqlmock.NewRows(deviceColumnNames).AddRow("dev-1", "dev-1", "online", 12.97, 77.59, seen))

	repo := NewDeviceRepo(db)
	d, err := repo.UpsertTelemetry(context.Background(), "dev-1", domain.Coordinate{Lat: 12.97, Lon: 77.59}, seen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != domain.DeviceOnline {
		t.Errorf("expected online, got %s", d.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateStatus_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`UPDATE devices SET status`).
		WithArgs("dev-1", "offline").
		WillReturnRows(sqlmock.NewRows(deviceColumnNames).AddRow("dev-1", "Tracker", "offline", nil, nil, nil))

	repo := NewDeviceRepo(db)
	d, err := repo.UpdateStatus(context.Background(), "dev-1", domain.DeviceOffline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != domain.DeviceOffline {
		t.Errorf("expected offline, got %s", d.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateStatus_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`UPDATE devices SET status`).
		WithArgs("dev-1", "online").
		WillReturnError(sqlmock.ErrCancelled)

	repo := NewDeviceRepo(db)
	if _, err := repo.UpdateStatus(context.Background(), "dev-1", domain.DeviceOnline); err == nil {
		t.Fatal("expected error")
	}
}

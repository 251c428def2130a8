package entitlements

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestLimitsForFreeTier(t *testing.T) {
	limits := LimitsFor(false)

	if limits.MaxPostLength != 300 {
		t.Fatalf("free MaxPostLength = %d, want 300", limits.MaxPostLength)
	}
	if limits.MaxImages != 4 || limits.MaxVideos != 1 {
		t.Fatalf("free media limits = (%d, %d), want (4, 1)", limits.MaxImages, limits.MaxVideos)
	}
	if limits.CanSchedulePost || limits.CanViewAnalytics {
		t.Fatal("free tier must not schedule posts or view analytics")
	}
}

func TestLimitsForPremiumTier(t *testing.T) {
	limits := LimitsFor(true)

	if limits.MaxPostLength != 5000 {
		t.Fatalf("premium MaxPostLength = %d, want 5000", limits.MaxPostLength)
	}
	if limits.MaxImages != 10 || limits.MaxVideos != 4 {
		t.Fatalf("premium media limits = (%d, %d), want (10, 4)", limits.MaxImages, limits.MaxVideos)
	}
	if !limits.CanSchedulePost || !limits.CanViewAnalytics {
		t.Fatal("premium tier must schedule posts and view analytics")
	}
}

func TestLimitsAreStrictlyOrdered(t *testing.T) {
	free := LimitsFor(false)
	premium := LimitsFor(true)

	if premium.MaxPostLength <= free.MaxPostLength {
		t.Fatal("premium post length must exceed free")
	}
	if premium.MaxImages <= free.MaxImages || premium.MaxVideos <= free.MaxVideos {
		t.Fatal("premium media limits must exceed free")
	}
}

func newReaderDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db, mock
}

func TestIsPremiumUserReadsCachedFlag(t *testing.T) {
	db, mock := newReaderDB(t)
	mock.ExpectQuery("SELECT is_premium FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"is_premium"}).AddRow(true))

	got, err := NewReader(db).IsPremiumUser(7)
	if err != nil {
		t.Fatalf("IsPremiumUser: %v", err)
	}
	if !got {
		t.Fatal("IsPremiumUser = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestIsPremiumUserMissingUserIsFreeTier(t *testing.T) {
	db, mock := newReaderDB(t)
	mock.ExpectQuery("SELECT is_premium FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"is_premium"}))

	got, err := NewReader(db).IsPremiumUser(404)
	if err != nil {
		t.Fatalf("missing user must not error, got %v", err)
	}
	if got {
		t.Fatal("missing user must read as free tier")
	}
}

func TestIsPremiumUserZeroIDSkipsQuery(t *testing.T) {
	db, mock := newReaderDB(t)

	got, err := NewReader(db).IsPremiumUser(0)
	if err != nil {
		t.Fatalf("IsPremiumUser(0): %v", err)
	}
	if got {
		t.Fatal("anonymous viewer must read as free tier")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestIsPremiumUserSurfacesDBErrors(t *testing.T) {
	db, mock := newReaderDB(t)
	dbErr := errors.New("connection refused")
	mock.ExpectQuery("SELECT is_premium FROM `users`").WillReturnError(dbErr)

	if _, err := NewReader(db).IsPremiumUser(7); err == nil {
		t.Fatal("DB failure must surface as an error")
	}
}

func TestGetMembershipLimitsForUnknownUser(t *testing.T) {
	db, mock := newReaderDB(t)
	mock.ExpectQuery("SELECT is_premium FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"is_premium"}))

	limits, err := NewReader(db).GetMembershipLimits(404)
	if err != nil {
		t.Fatalf("GetMembershipLimits: %v", err)
	}
	if limits != LimitsFor(false) {
		t.Fatal("unknown user must get free-tier limits")
	}
}

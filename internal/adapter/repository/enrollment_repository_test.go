package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
)

// newTestDB opens an in-memory sqlite database. The schema is created with
// explicit DDL because the models carry postgres column defaults.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ddl := []string{
		`CREATE TABLE lessons (
			id integer PRIMARY KEY AUTOINCREMENT,
			title text NOT NULL,
			start_date datetime NOT NULL,
			end_date datetime NOT NULL,
			time_slot text,
			instructor text,
			capacity integer NOT NULL,
			price numeric NOT NULL,
			status text NOT NULL DEFAULT 'OPEN',
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE locker_inventories (
			id integer PRIMARY KEY AUTOINCREMENT,
			gender text NOT NULL UNIQUE,
			total_quantity integer NOT NULL,
			used_quantity integer NOT NULL DEFAULT 0,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE enrollments (
			id integer PRIMARY KEY AUTOINCREMENT,
			user_id text NOT NULL,
			lesson_id integer NOT NULL,
			uses_locker boolean NOT NULL DEFAULT 0,
			gender text NOT NULL,
			locker_allocated boolean NOT NULL DEFAULT 0,
			membership text NOT NULL DEFAULT 'GENERAL',
			discount_percent integer NOT NULL DEFAULT 0,
			lesson_amount numeric NOT NULL,
			locker_amount numeric NOT NULL DEFAULT 0,
			pay_status text NOT NULL DEFAULT 'UNPAID',
			app_status text NOT NULL DEFAULT 'APPLIED',
			expire_dt datetime NOT NULL,
			created_at datetime,
			updated_at datetime
		)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	return db
}

func seedLesson(t *testing.T, db *gorm.DB, capacity int) *model.Lesson {
	t.Helper()
	lesson := &model.Lesson{
		Title:     "초급 자유형 1반",
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		TimeSlot:  "06:00-06:50",
		Capacity:  capacity,
		Price:     decimal.NewFromInt(50000),
		Status:    model.LessonStatusOpen,
	}
	if err := db.Create(lesson).Error; err != nil {
		t.Fatalf("failed to seed lesson: %v", err)
	}
	return lesson
}

func seedLockerPool(t *testing.T, db *gorm.DB, gender model.Gender, total, used int) {
	t.Helper()
	pool := &model.LockerInventory{
		Gender:        gender,
		TotalQuantity: total,
		UsedQuantity:  used,
	}
	if err := db.Create(pool).Error; err != nil {
		t.Fatalf("failed to seed locker pool: %v", err)
	}
}

func newEnrollment(userID string, lessonID int64) *model.Enrollment {
	return &model.Enrollment{
		UserID:       userID,
		LessonID:     lessonID,
		Gender:       model.GenderMale,
		Membership:   model.MembershipGeneral,
		LessonAmount: decimal.NewFromInt(50000),
		LockerAmount: decimal.NewFromInt(0),
		PayStatus:    model.PayStatusUnpaid,
		AppStatus:    model.AppStatusApplied,
		ExpireDT:     time.Now().Add(5 * time.Minute),
	}
}

func TestEnrollmentRepository_ReserveSeat(t *testing.T) {
	ctx := context.Background()

	t.Run("capacity 1 admits exactly one holder", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewEnrollmentRepository(db, zap.NewNop())
		lesson := seedLesson(t, db, 1)

		err := repo.ReserveSeat(ctx, newEnrollment("user-a", lesson.ID))
		assert.NoError(t, err)

		err = repo.ReserveSeat(ctx, newEnrollment("user-b", lesson.ID))
		var capErr *domainErrors.CapacityExceededError
		assert.ErrorAs(t, err, &capErr)

		held, err := repo.CountHeldSeats(ctx, lesson.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), held)
	})

	t.Run("second active enrollment for the same user is rejected", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewEnrollmentRepository(db, zap.NewNop())
		lesson := seedLesson(t, db, 5)

		err := repo.ReserveSeat(ctx, newEnrollment("user-a", lesson.ID))
		assert.NoError(t, err)

		err = repo.ReserveSeat(ctx, newEnrollment("user-a", lesson.ID))
		var dupErr *domainErrors.DuplicateEnrollmentError
		assert.ErrorAs(t, err, &dupErr)
	})

	t.Run("released seat becomes reservable again", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewEnrollmentRepository(db, zap.NewNop())
		lesson := seedLesson(t, db, 1)

		first := newEnrollment("user-a", lesson.ID)
		err := repo.ReserveSeat(ctx, first)
		assert.NoError(t, err)

		applied, err := repo.TransitionAndRelease(ctx,
			first.ID, model.PayStatusUnpaid, model.PayStatusPaymentTimeout, true)
		assert.NoError(t, err)
		assert.True(t, applied)

		err = repo.ReserveSeat(ctx, newEnrollment("user-b", lesson.ID))
		assert.NoError(t, err)
	})

	t.Run("timed out enrollment does not block re-enrollment by the same user", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewEnrollmentRepository(db, zap.NewNop())
		lesson := seedLesson(t, db, 5)

		first := newEnrollment("user-a", lesson.ID)
		err := repo.ReserveSeat(ctx, first)
		assert.NoError(t, err)

		applied, err := repo.TransitionAndRelease(ctx,
			first.ID, model.PayStatusUnpaid, model.PayStatusPaymentTimeout, true)
		assert.NoError(t, err)
		assert.True(t, applied)

		err = repo.ReserveSeat(ctx, newEnrollment("user-a", lesson.ID))
		assert.NoError(t, err)
	})

	t.Run("closed lesson rejects reservation", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewEnrollmentRepository(db, zap.NewNop())
		lesson := seedLesson(t, db, 5)
		err := db.Model(lesson).UpdateColumn("status", string(model.LessonStatusClosed)).Error
		assert.NoError(t, err)

		err = repo.ReserveSeat(ctx, newEnrollment("user-a", lesson.ID))
		var enrollableErr *domainErrors.LessonNotEnrollableError
		assert.ErrorAs(t, err, &enrollableErr)
	})

	t.Run("exhausted locker pool rejects and leaves no enrollment", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewEnrollmentRepository(db, zap.NewNop())
		lesson := seedLesson(t, db, 5)
		seedLockerPool(t, db, model.GenderMale, 1, 1)

		enrollment := newEnrollment("user-a", lesson.ID)
		enrollment.UsesLocker = true
		enrollment.LockerAmount = decimal.NewFromInt(5000)

		err := repo.ReserveSeat(ctx, enrollment)
		var lockerErr *domainErrors.LockerUnavailableError
		assert.ErrorAs(t, err, &lockerErr)

		held, err := repo.CountHeldSeats(ctx, lesson.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), held)
	})

	t.Run("locker reservation and release keep the pool balanced", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewEnrollmentRepository(db, zap.NewNop())
		lesson := seedLesson(t, db, 5)
		seedLockerPool(t, db, model.GenderMale, 2, 0)

		enrollment := newEnrollment("user-a", lesson.ID)
		enrollment.UsesLocker = true
		enrollment.LockerAmount = decimal.NewFromInt(5000)

		err := repo.ReserveSeat(ctx, enrollment)
		assert.NoError(t, err)
		assert.True(t, enrollment.LockerAllocated)

		var pool model.LockerInventory
		err = db.Where("gender = ?", model.GenderMale).First(&pool).Error
		assert.NoError(t, err)
		assert.Equal(t, 1, pool.UsedQuantity)

		applied, err := repo.TransitionAndRelease(ctx,
			enrollment.ID, model.PayStatusUnpaid, model.PayStatusCanceledUnpaid, true)
		assert.NoError(t, err)
		assert.True(t, applied)

		err = db.Where("gender = ?", model.GenderMale).First(&pool).Error
		assert.NoError(t, err)
		assert.Equal(t, 0, pool.UsedQuantity)
	})
}

package database

import (
	"database/sql"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"soofia-clockbook/app/models"
)

// RunMigrations checks and applies necessary schema updates
func RunMigrations(db *sql.DB) error {
	log.Println("Running database migrations...")

	// 1. gen_random_uuid() on servers older than PostgreSQL 13
	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`); err != nil {
		log.Printf("Failed to enable pgcrypto: %v", err)
		return err
	}

	// 2. Tables and the (teacher_id, date, time_slot) unique index from model tags
	if err := autoMigrate(db); err != nil {
		return err
	}

	// 3. Constraints the tags cannot express
	if err := addTeacherForeignKey(db); err != nil {
		return err
	}
	if err := addHoursCheck(db); err != nil {
		return err
	}
	if err := addStatusCheck(db); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func autoMigrate(db *sql.DB) error {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		log.Printf("Failed to open gorm on existing connection: %v", err)
		return err
	}
	if err := gdb.AutoMigrate(&models.Teacher{}, &models.TeacherAttendance{}); err != nil {
		log.Printf("Failed to auto-migrate tables: %v", err)
		return err
	}
	return nil
}

func addTeacherForeignKey(db *sql.DB) error {
	query := `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1
				FROM information_schema.table_constraints
				WHERE table_name = 'teacher_attendances'
				AND constraint_name = 'teacher_attendances_teacher_fk'
			) THEN
				ALTER TABLE teacher_attendances
					ADD CONSTRAINT teacher_attendances_teacher_fk FOREIGN KEY (teacher_id) REFERENCES teachers(id);
				RAISE NOTICE 'Added teacher foreign key to teacher_attendances';
			END IF;
		END $$;
	`
	_, err := db.Exec(query)
	if err != nil {
		log.Printf("Failed to run migration for teacher foreign key: %v", err)
		return err
	}
	return nil
}

func addHoursCheck(db *sql.DB) error {
	query := `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1
				FROM information_schema.table_constraints
				WHERE table_name = 'teacher_attendances'
				AND constraint_name = 'teacher_attendances_hours_range'
			) THEN
				ALTER TABLE teacher_attendances
					ADD CONSTRAINT teacher_attendances_hours_range CHECK (hours IS NULL OR (hours >= 0 AND hours <= 24));
				RAISE NOTICE 'Added hours range check to teacher_attendances';
			END IF;
		END $$;
	`
	_, err := db.Exec(query)
	if err != nil {
		log.Printf("Failed to run migration for hours check: %v", err)
		return err
	}
	return nil
}

func addStatusCheck(db *sql.DB) error {
	query := `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1
				FROM information_schema.table_constraints
				WHERE table_name = 'teacher_attendances'
				AND constraint_name = 'teacher_attendances_status_values'
			) THEN
				ALTER TABLE teacher_attendances
					ADD CONSTRAINT teacher_attendances_status_values CHECK (status IN ('present', 'absent', 'unset'));
				RAISE NOTICE 'Added status check to teacher_attendances';
			END IF;
		END $$;
	`
	_, err := db.Exec(query)
	if err != nil {
		log.Printf("Failed to run migration for status check: %v", err)
		return err
	}
	return nil
}

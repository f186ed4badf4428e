package postgres

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_students",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_psychology",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "widen_class_name",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    class_name VARCHAR(10) NOT NULL,
    gender VARCHAR(10) NOT NULL,
    avg_grade NUMERIC(3,2) NOT NULL,
    grade_trend NUMERIC(4,2) NOT NULL DEFAULT 0,
    absences INTEGER NOT NULL DEFAULT 0,
    unexcused_absences INTEGER NOT NULL DEFAULT 0,
    low_activity BOOLEAN NOT NULL DEFAULT FALSE,
    homework_completion NUMERIC(5,2) NOT NULL DEFAULT 0,
    teacher_alerts INTEGER NOT NULL DEFAULT 0,
    subjects_at_risk TEXT[] NOT NULL DEFAULT '{}',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_gender CHECK (gender IN ('male', 'female')),
    CONSTRAINT valid_avg_grade CHECK (avg_grade >= 1 AND avg_grade <= 5),
    CONSTRAINT valid_absences CHECK (absences >= 0 AND unexcused_absences >= 0),
    CONSTRAINT valid_homework CHECK (homework_completion >= 0 AND homework_completion <= 100),
    CONSTRAINT valid_alerts CHECK (teacher_alerts >= 0)
);

CREATE INDEX IF NOT EXISTS idx_students_class_name ON students(class_name);
CREATE INDEX IF NOT EXISTS idx_students_class_full_name ON students(class_name, full_name);
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE PSYCHOLOGY RECORDS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS psych_referrals (
    id UUID PRIMARY KEY,
    student_id TEXT NOT NULL,
    student_name TEXT NOT NULL DEFAULT '',
    class_name VARCHAR(10) NOT NULL DEFAULT '',
    reason_type VARCHAR(20) NOT NULL,
    urgency VARCHAR(10) NOT NULL,
    comment TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_reason_type CHECK (reason_type IN ('academic', 'attendance', 'behavior', 'emotional', 'family', 'other')),
    CONSTRAINT valid_urgency CHECK (urgency IN ('low', 'medium', 'high'))
);

CREATE INDEX IF NOT EXISTS idx_psych_referrals_student ON psych_referrals(student_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_psych_referrals_created ON psych_referrals(created_at DESC);

CREATE TABLE IF NOT EXISTS psych_notes (
    id UUID PRIMARY KEY,
    student_id TEXT NOT NULL,
    meeting_at TIMESTAMP WITH TIME ZONE,
    note TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_psych_notes_student ON psych_notes(student_id, created_at DESC);

CREATE TABLE IF NOT EXISTS psych_appointments (
    id UUID PRIMARY KEY,
    student_id TEXT NOT NULL,
    student_name TEXT NOT NULL DEFAULT '',
    class_name VARCHAR(10) NOT NULL DEFAULT '',
    datetime TIMESTAMP WITH TIME ZONE NOT NULL,
    note TEXT NOT NULL DEFAULT '',

    CONSTRAINT uniq_student_slot UNIQUE (student_id, datetime)
);

CREATE INDEX IF NOT EXISTS idx_psych_appointments_datetime ON psych_appointments(datetime);
`

const migration002Down = `
DROP TABLE IF EXISTS psych_appointments;
DROP TABLE IF EXISTS psych_notes;
DROP TABLE IF EXISTS psych_referrals;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: WIDEN CLASS NAME
// ══════════════════════════════════════════════════════════════════════════════

// class_name holds up to student.MaxClassNameLen characters.
const migration003Up = `
ALTER TABLE students ALTER COLUMN class_name TYPE VARCHAR(16);
ALTER TABLE psych_referrals ALTER COLUMN class_name TYPE VARCHAR(16);
ALTER TABLE psych_appointments ALTER COLUMN class_name TYPE VARCHAR(16);
`

const migration003Down = `
ALTER TABLE psych_appointments ALTER COLUMN class_name TYPE VARCHAR(10);
ALTER TABLE psych_referrals ALTER COLUMN class_name TYPE VARCHAR(10);
ALTER TABLE students ALTER COLUMN class_name TYPE VARCHAR(10);
`

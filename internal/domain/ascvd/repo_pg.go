package ascvd

import (
	"context"
	"embed"
	"io/fs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the SQL migrations that create the assessment tables.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type assessmentRepoPG struct{ db queryable }

func NewAssessmentRepoPG(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepoPG{db: pool}
}

const assessmentCols = `id, patient_id, patient_score, healthy_score, sex, race, age,
	total_cholesterol, hdl_cholesterol, systolic_bp, smoking_category,
	diabetic, treated_hypertension, calculated_at`

func (r *assessmentRepoPG) scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientScore, &a.HealthyScore, &a.Sex, &a.Race, &a.Age,
		&a.TotalCholesterol, &a.HDLCholesterol, &a.SystolicBP, &a.Smoking,
		&a.Diabetic, &a.TreatedHypertension, &a.CalculatedAt)
	return &a, err
}

func (r *assessmentRepoPG) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	_, err := r.db.Exec(ctx, `
		INSERT INTO ascvd_assessment (id, patient_id, patient_score, healthy_score, sex, race, age,
			total_cholesterol, hdl_cholesterol, systolic_bp, smoking_category,
			diabetic, treated_hypertension, calculated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.PatientID, a.PatientScore, a.HealthyScore, a.Sex, a.Race, a.Age,
		a.TotalCholesterol, a.HDLCholesterol, a.SystolicBP, a.Smoking,
		a.Diabetic, a.TreatedHypertension, a.CalculatedAt)
	return err
}

func (r *assessmentRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Assessment, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ascvd_assessment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+assessmentCols+` FROM ascvd_assessment
		WHERE patient_id = $1 ORDER BY calculated_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Assessment
	for rows.Next() {
		a, err := r.scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

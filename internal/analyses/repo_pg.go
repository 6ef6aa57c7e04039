package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"casa-backend/internal/pipeline"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const reportColumns = `id, user_id, filename, original_filename, media_url, media_type,
       media_duration, frames_analyzed, processing_time, sperm_count, concentration,
       total_sperm_number, volume, ph, vitality, speed_avg, motility, morphology,
       motion_parameters, koyeb_job_id, analysis_method, ai_confidence, who_2010_compliant,
       quality_control, processing_details, koyeb_processing_details, medical_interpretation,
       statistical_analysis, status, created_at`

// Create inserts the report in a single statement.
func (r *PGRepo) Create(ctx context.Context, report Report) error {
	const query = `
INSERT INTO analysis_results (` + reportColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)`

	blocks, err := marshalBlocks(report)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		report.ID,
		report.UserID,
		report.Filename,
		report.OriginalFilename,
		report.MediaURL,
		string(report.MediaType),
		report.MediaDuration,
		report.FramesAnalyzed,
		report.ProcessingTime,
		report.SpermCount,
		report.Concentration,
		report.TotalSpermNumber,
		report.Volume,
		report.PH,
		report.Vitality,
		report.SpeedAvg,
		blocks[0],
		blocks[1],
		blocks[2],
		report.KoyebJobID,
		report.AnalysisMethod,
		report.AIConfidence,
		report.WHO2010Compliant,
		blocks[3],
		blocks[4],
		blocks[5],
		blocks[6],
		blocks[7],
		report.Status,
		report.CreatedAt,
	)
	return err
}

// GetByID returns a report by id.
func (r *PGRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	query := `SELECT ` + reportColumns + ` FROM analysis_results WHERE id = $1`
	report, err := scanReport(r.DB.QueryRowContext(ctx, query, reportID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, ErrNotFound
		}
		return Report{}, err
	}
	return report, nil
}

// ListByUser lists reports newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + reportColumns + `
FROM analysis_results
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// CountByUser returns how many reports the user owns.
func (r *PGRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_results WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func marshalBlocks(report Report) ([8]string, error) {
	var out [8]string
	values := [8]any{
		report.Motility,
		report.Morphology,
		report.MotionParameters,
		report.QualityControl,
		report.ProcessingDetails,
		report.KoyebProcessingDetails,
		report.MedicalInterpretation,
		report.StatisticalAnalysis,
	}
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return out, fmt.Errorf("marshal report block %d: %w", i, err)
		}
		out[i] = string(b)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var rep Report
	var mediaType string
	var blocks [8][]byte
	err := row.Scan(
		&rep.ID,
		&rep.UserID,
		&rep.Filename,
		&rep.OriginalFilename,
		&rep.MediaURL,
		&mediaType,
		&rep.MediaDuration,
		&rep.FramesAnalyzed,
		&rep.ProcessingTime,
		&rep.SpermCount,
		&rep.Concentration,
		&rep.TotalSpermNumber,
		&rep.Volume,
		&rep.PH,
		&rep.Vitality,
		&rep.SpeedAvg,
		&blocks[0],
		&blocks[1],
		&blocks[2],
		&rep.KoyebJobID,
		&rep.AnalysisMethod,
		&rep.AIConfidence,
		&rep.WHO2010Compliant,
		&blocks[3],
		&blocks[4],
		&blocks[5],
		&blocks[6],
		&blocks[7],
		&rep.Status,
		&rep.CreatedAt,
	)
	if err != nil {
		return Report{}, err
	}
	rep.MediaType = pipeline.MediaType(mediaType)

	targets := [8]any{
		&rep.Motility,
		&rep.Morphology,
		&rep.MotionParameters,
		&rep.QualityControl,
		&rep.ProcessingDetails,
		&rep.KoyebProcessingDetails,
		&rep.MedicalInterpretation,
		&rep.StatisticalAnalysis,
	}
	for i, target := range targets {
		if len(blocks[i]) == 0 {
			continue
		}
		if err := json.Unmarshal(blocks[i], target); err != nil {
			return Report{}, fmt.Errorf("decode report block %d: %w", i, err)
		}
	}
	return rep, nil
}

var _ Repo = (*PGRepo)(nil)

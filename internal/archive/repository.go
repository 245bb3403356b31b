package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/phantomlab/facetriage/internal/model"
)

// StoredFace is an archived face row.
type StoredFace struct {
	ID          uuid.UUID
	ProjectName string
	ImagePath   string
	BBox        []float64 // x, y, width, height
	Confidence  float64
	Embedding   []float32
	GroupID     *uuid.UUID
	PushedAt    time.Time
}

// StoredGroup is an archived group row.
type StoredGroup struct {
	ID          uuid.UUID
	ProjectName string
	Name        string
	MainFaceID  *uuid.UUID
	FaceCount   int
	PushedAt    time.Time
}

// Repository reads and writes archived projects.
type Repository struct {
	pool *Pool
}

func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// PushProject replaces the archived copy of the named project with the
// current in-memory state. Everything happens in one transaction, so a
// failed push leaves the previous archive intact.
func (r *Repository) PushProject(ctx context.Context, projectName string, p *model.Project) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM archive_faces WHERE project_name = $1", projectName); err != nil {
		return fmt.Errorf("delete existing faces: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM archive_groups WHERE project_name = $1", projectName); err != nil {
		return fmt.Errorf("delete existing groups: %w", err)
	}

	if err := insertGroups(ctx, tx, projectName, p.Groups()); err != nil {
		return err
	}
	if err := insertFaces(ctx, tx, projectName, p.Faces()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit push: %w", err)
	}
	return nil
}

func insertGroups(ctx context.Context, tx *sql.Tx, projectName string, groups []*model.Group) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO archive_groups (id, project_name, name, main_face_id, face_count)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare group insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range groups {
		var mainFaceID *uuid.UUID
		if mf := g.MainFace(); mf != nil {
			id := mf.ID
			mainFaceID = &id
		}
		if _, err := stmt.ExecContext(ctx, g.ID, projectName, g.Name, mainFaceID, len(g.Faces())); err != nil {
			return fmt.Errorf("insert group %s: %w", g.ID, err)
		}
	}
	return nil
}

func insertFaces(ctx context.Context, tx *sql.Tx, projectName string, faces []*model.Face) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO archive_faces (id, project_name, image_path, bbox, confidence, embedding, group_id)
		VALUES ($1, $2, $3, $4, $5, $6::vector, $7)
	`)
	if err != nil {
		return fmt.Errorf("prepare face insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range faces {
		var imagePath string
		if img := f.Image(); img != nil {
			imagePath = img.Path
		}
		var groupID *uuid.UUID
		if g := f.Group(); g != nil {
			id := g.ID
			groupID = &id
		}
		bbox := pq.Array([]float64{
			float64(f.Box.X), float64(f.Box.Y),
			float64(f.Box.Width), float64(f.Box.Height),
		})
		vec := pgvector.NewVector(f.Embedding)

		if _, err := stmt.ExecContext(ctx, f.ID, projectName, imagePath, bbox, f.Confidence, vec, groupID); err != nil {
			return fmt.Errorf("insert face %s: %w", f.ID, err)
		}
	}
	return nil
}

// Faces returns the archived faces of a project.
func (r *Repository) Faces(ctx context.Context, projectName string) ([]StoredFace, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_name, image_path, bbox, confidence, embedding, group_id, pushed_at
		FROM archive_faces
		WHERE project_name = $1
		ORDER BY pushed_at, id
	`, projectName)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// Groups returns the archived groups of a project, largest first.
func (r *Repository) Groups(ctx context.Context, projectName string) ([]StoredGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_name, name, main_face_id, face_count, pushed_at
		FROM archive_groups
		WHERE project_name = $1
		ORDER BY face_count DESC, id
	`, projectName)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []StoredGroup
	for rows.Next() {
		var g StoredGroup
		if err := rows.Scan(&g.ID, &g.ProjectName, &g.Name, &g.MainFaceID, &g.FaceCount, &g.PushedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// CountFaces returns the number of archived faces across all projects.
func (r *Repository) CountFaces(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM archive_faces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// CountGroups returns the number of archived groups across all projects.
func (r *Repository) CountGroups(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM archive_groups").Scan(&count); err != nil {
		return 0, fmt.Errorf("count groups: %w", err)
	}
	return count, nil
}

// FindSimilar returns up to limit archived faces within maxDistance of the
// query embedding, closest first. Distance is Euclidean, matching the
// clustering engine.
func (r *Repository) FindSimilar(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]StoredFace, []float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_name, image_path, bbox, confidence, embedding, group_id, pushed_at,
		       embedding <-> $1::vector AS distance
		FROM archive_faces
		WHERE embedding <-> $1::vector < $2
		ORDER BY distance
		LIMIT $3
	`, pgvector.NewVector(embedding), maxDistance, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar faces: %w", err)
	}
	defer rows.Close()

	var faces []StoredFace
	var distances []float64
	for rows.Next() {
		var f StoredFace
		var vec pgvector.Vector
		var bbox pq.Float64Array
		var dist float64
		if err := rows.Scan(&f.ID, &f.ProjectName, &f.ImagePath, &bbox, &f.Confidence, &vec, &f.GroupID, &f.PushedAt, &dist); err != nil {
			return nil, nil, fmt.Errorf("scan similar face: %w", err)
		}
		f.BBox = bbox
		f.Embedding = vec.Slice()
		faces = append(faces, f)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate similar faces: %w", err)
	}
	return faces, distances, nil
}

func scanFaces(rows *sql.Rows) ([]StoredFace, error) {
	var faces []StoredFace
	for rows.Next() {
		var f StoredFace
		var vec pgvector.Vector
		var bbox pq.Float64Array
		if err := rows.Scan(&f.ID, &f.ProjectName, &f.ImagePath, &bbox, &f.Confidence, &vec, &f.GroupID, &f.PushedAt); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		f.BBox = bbox
		f.Embedding = vec.Slice()
		faces = append(faces, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

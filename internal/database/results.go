package database

import (
	"encoding/json"
	"fmt"

	"github.com/TobiSchelling/PaperDigest/internal/paper"
)

// SaveRunPapers replaces the ranked papers recorded for a run.
func (db *DB) SaveRunPapers(runID string, papers []RunPaper) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM run_papers WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clearing run papers: %w", err)
	}
	for _, p := range papers {
		_, err := tx.Exec(
			`INSERT INTO run_papers
			(run_id, rank, paper_id, title, url, pdf_url, score, content_status, content_error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, p.Rank, p.PaperID, p.Title, p.URL, p.PDFURL, p.Score, p.ContentStatus, p.ContentError,
		)
		if err != nil {
			return fmt.Errorf("inserting run paper %s: %w", p.PaperID, err)
		}
	}
	return tx.Commit()
}

// GetRunPapers returns the ranked papers of a run in rank order.
func (db *DB) GetRunPapers(runID string) ([]RunPaper, error) {
	rows, err := db.conn.Query(
		`SELECT rank, paper_id, title, COALESCE(url, ''), COALESCE(pdf_url, ''), score,
		COALESCE(content_status, ''), COALESCE(content_error, '')
		FROM run_papers WHERE run_id = ? ORDER BY rank`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []RunPaper
	for rows.Next() {
		var p RunPaper
		if err := rows.Scan(&p.Rank, &p.PaperID, &p.Title, &p.URL, &p.PDFURL, &p.Score,
			&p.ContentStatus, &p.ContentError); err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// SaveRunSummaries replaces the summaries recorded for a run.
func (db *DB) SaveRunSummaries(runID string, summaries []paper.Summary) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM run_summaries WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clearing run summaries: %w", err)
	}
	for i, s := range summaries {
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encoding summary %s: %w", s.PaperID, err)
		}
		_, err = tx.Exec(
			"INSERT INTO run_summaries (run_id, position, paper_id, status, payload) VALUES (?, ?, ?, ?, ?)",
			runID, i, s.PaperID, string(s.Status), string(payload),
		)
		if err != nil {
			return fmt.Errorf("inserting summary %s: %w", s.PaperID, err)
		}
	}
	return tx.Commit()
}

// GetRunSummaries returns the summaries of a run in digest order.
func (db *DB) GetRunSummaries(runID string) ([]paper.Summary, error) {
	rows, err := db.conn.Query(
		"SELECT payload FROM run_summaries WHERE run_id = ? ORDER BY position", runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []paper.Summary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var s paper.Summary
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, fmt.Errorf("decoding summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

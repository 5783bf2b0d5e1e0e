package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func newDBCmd(opts *globalOpts) *cobra.Command {
	var (
		dbPath string
		runID  string
		limit  int
	)
	cmd := &cobra.Command{
		Use:       "db [runs|plans|events|snapshots]",
		Short:     "Query the sqlite plan index",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"runs", "plans", "events", "snapshots"},
		RunE: func(cmd *cobra.Command, args []string) error {
			q := "runs"
			if len(args) > 0 {
				q = strings.TrimSpace(args[0])
			}
			path := strings.TrimSpace(dbPath)
			if path == "" {
				path = filepath.Join(opts.dataDir, "index", "plans.sqlite")
			}
			if limit <= 0 {
				limit = 20
			}

			db, err := sql.Open("sqlite", path)
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			switch q {
			case "runs":
				return queryRows(out, db, func(rows *sql.Rows) (any, error) {
					var r struct {
						RunID          string `json:"run_id"`
						ScenarioID     string `json:"scenario_id"`
						ScenarioDigest string `json:"scenario_digest"`
						TuningDigest   string `json:"tuning_digest"`
						StartedAt      string `json:"started_at"`
					}
					err := rows.Scan(&r.RunID, &r.ScenarioID, &r.ScenarioDigest, &r.TuningDigest, &r.StartedAt)
					return r, err
				}, `SELECT run_id,scenario_id,scenario_digest,tuning_digest,started_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
			case "plans":
				return queryRows(out, db, func(rows *sql.Rows) (any, error) {
					var (
						r struct {
							RunID    string          `json:"run_id"`
							Round    int             `json:"round"`
							Agent    string          `json:"agent"`
							Goal     string          `json:"goal,omitempty"`
							Found    bool            `json:"found"`
							Cost     float64         `json:"cost"`
							Expanded int             `json:"expanded"`
							Actions  json.RawMessage `json:"actions"`
						}
						goal    sql.NullString
						actions string
					)
					err := rows.Scan(&r.RunID, &r.Round, &r.Agent, &goal, &r.Found, &r.Cost, &r.Expanded, &actions)
					r.Goal = goal.String
					r.Actions = json.RawMessage(actions)
					return r, err
				}, `SELECT run_id,round,agent_id,goal,found,cost,expanded,actions_json FROM plans WHERE (?='' OR run_id=?) ORDER BY run_id,round,agent_id LIMIT ?`, runID, runID, limit)
			case "events":
				return queryRows(out, db, func(rows *sql.Rows) (any, error) {
					var (
						r struct {
							RunID   string          `json:"run_id"`
							Seq     int             `json:"seq"`
							Tick    int64           `json:"tick"`
							Agent   string          `json:"agent"`
							Kind    string          `json:"kind"`
							Action  string          `json:"action"`
							Effects json.RawMessage `json:"effects,omitempty"`
						}
						effects sql.NullString
					)
					err := rows.Scan(&r.RunID, &r.Seq, &r.Tick, &r.Agent, &r.Kind, &r.Action, &effects)
					if effects.Valid {
						r.Effects = json.RawMessage(effects.String)
					}
					return r, err
				}, `SELECT run_id,seq,tick,agent_id,kind,action,effects_json FROM events WHERE (?='' OR run_id=?) ORDER BY run_id,seq LIMIT ?`, runID, runID, limit)
			case "snapshots":
				return queryRows(out, db, func(rows *sql.Rows) (any, error) {
					var r struct {
						RunID  string `json:"run_id"`
						Tick   int64  `json:"tick"`
						Path   string `json:"path"`
						Digest string `json:"digest"`
						Facts  int    `json:"facts"`
					}
					err := rows.Scan(&r.RunID, &r.Tick, &r.Path, &r.Digest, &r.Facts)
					return r, err
				}, `SELECT run_id,tick,path,digest,facts FROM snapshots WHERE (?='' OR run_id=?) ORDER BY run_id,tick LIMIT ?`, runID, runID, limit)
			default:
				return fmt.Errorf("unknown query %q", q)
			}
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite db path (default: <data>/index/plans.sqlite)")
	cmd.Flags().StringVar(&runID, "run", "", "run id filter (plans, events, snapshots)")
	cmd.Flags().IntVar(&limit, "limit", 20, "result limit")
	return cmd
}

func queryRows(out io.Writer, db *sql.DB, scan func(*sql.Rows) (any, error), query string, args ...any) error {
	rows, err := db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	enc := json.NewEncoder(out)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/lib/pq"

	"farm_service/internal/domain/model"
)

func openTestRepo(t *testing.T) *FarmRepository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "farm.db") + "?_pragma=busy_timeout(5000)"
	repo, err := Open(context.Background(), DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return repo
}

func fptr(v float64) *float64 { return &v }

func mustInTx(t *testing.T, repo *FarmRepository, fn func(tx Tx) error) {
	t.Helper()
	if err := repo.InTx(context.Background(), fn); err != nil {
		t.Fatalf("InTx: %v", err)
	}
}

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func TestMigrateIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "whatever"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestBarnAndChecklistRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	var barnID, checklistID int64
	mustInTx(t, repo, func(tx Tx) error {
		farmID, err := tx.InsertFarm(ctx, model.Farm{Name: "North", Location: "Valley"})
		if err != nil {
			return err
		}
		barnID, err = tx.InsertBarn(ctx, model.Barn{FarmID: farmID, Name: "B1", Capacity: 500, LastUpdated: t0})
		if err != nil {
			return err
		}
		checklistID, err = tx.InsertChecklist(ctx, model.Checklist{
			BarnID:       barnID,
			UserID:       7,
			HygieneScore: fptr(6.5),
			Humidity:     fptr(72),
			Notes:        "wet litter",
			SubmittedAt:  t0,
		})
		return err
	})

	mustInTx(t, repo, func(tx Tx) error {
		barn, err := tx.Barn(ctx, barnID)
		if err != nil {
			return err
		}
		if barn.Name != "B1" || barn.RiskLevel != "low" || barn.Capacity != 500 || !barn.LastUpdated.Equal(t0) {
			t.Errorf("unexpected barn %+v", barn)
		}

		c, err := tx.Checklist(ctx, checklistID)
		if err != nil {
			return err
		}
		want := model.Checklist{
			ID: checklistID, BarnID: barnID, UserID: 7,
			HygieneScore: fptr(6.5), Humidity: fptr(72),
			Notes: "wet litter", SubmittedAt: t0,
		}
		if diff := cmp.Diff(want, c, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
			t.Errorf("checklist (-want +got):\n%s", diff)
		}
		return nil
	})
}

func TestApprovedChecklistsAndLatest(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	var barnA, barnB, latestID int64
	mustInTx(t, repo, func(tx Tx) error {
		var err error
		if barnA, err = tx.InsertBarn(ctx, model.Barn{Name: "A"}); err != nil {
			return err
		}
		if barnB, err = tx.InsertBarn(ctx, model.Barn{Name: "B"}); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			if _, err := tx.InsertChecklist(ctx, model.Checklist{
				BarnID: barnA, HygieneScore: fptr(float64(i)), SubmittedAt: t0.Add(time.Duration(i) * time.Hour), Approved: true,
			}); err != nil {
				return err
			}
		}
		// newer, but not approved
		if _, err := tx.InsertChecklist(ctx, model.Checklist{BarnID: barnA, HygieneScore: fptr(9), SubmittedAt: t0.Add(10 * time.Hour)}); err != nil {
			return err
		}
		latestID, err = tx.InsertChecklist(ctx, model.Checklist{BarnID: barnA, HygieneScore: fptr(2), SubmittedAt: t0.Add(2 * time.Hour), Approved: true})
		return err
	})

	approved, err := repo.ApprovedChecklists(ctx)
	if err != nil {
		t.Fatalf("ApprovedChecklists: %v", err)
	}
	if len(approved) != 4 {
		t.Fatalf("got %d approved checklists, want 4", len(approved))
	}
	pending, err := repo.PendingChecklists(ctx)
	if err != nil {
		t.Fatalf("PendingChecklists: %v", err)
	}
	if len(pending) != 1 || pending[0].Approved {
		t.Fatalf("unexpected pending checklists %+v", pending)
	}

	mustInTx(t, repo, func(tx Tx) error {
		c, ok, err := tx.LatestApprovedChecklist(ctx, barnA)
		if err != nil {
			return err
		}
		if !ok || c.ID != latestID {
			t.Errorf("latest approved = %d (ok=%v), want %d", c.ID, ok, latestID)
		}
		recent, err := tx.RecentApprovedChecklists(ctx, barnA, 2)
		if err != nil {
			return err
		}
		if len(recent) != 2 || recent[0].ID != latestID || *recent[1].HygieneScore != 2 {
			t.Errorf("unexpected recent checklists %+v", recent)
		}
		_, ok, err = tx.LatestApprovedChecklist(ctx, barnB)
		if err != nil {
			return err
		}
		if ok {
			t.Error("barn without checklists reported a latest checklist")
		}
		return nil
	})
}

func TestApproveChecklist(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	var id int64
	mustInTx(t, repo, func(tx Tx) error {
		barnID, err := tx.InsertBarn(ctx, model.Barn{Name: "A"})
		if err != nil {
			return err
		}
		id, err = tx.InsertChecklist(ctx, model.Checklist{BarnID: barnID, SubmittedAt: t0})
		return err
	})
	mustInTx(t, repo, func(tx Tx) error {
		return tx.ApproveChecklist(ctx, id, 3, t0.Add(time.Hour))
	})
	mustInTx(t, repo, func(tx Tx) error {
		c, err := tx.Checklist(ctx, id)
		if err != nil {
			return err
		}
		if !c.Approved || c.ApprovedBy == nil || *c.ApprovedBy != 3 || c.ApprovedAt == nil {
			t.Errorf("checklist not approved: %+v", c)
		}
		return nil
	})

	err := repo.InTx(ctx, func(tx Tx) error { return tx.ApproveChecklist(ctx, id, 4, t0.Add(2*time.Hour)) })
	if !errors.Is(err, ErrAlreadyApproved) {
		t.Fatalf("re-approving: expected ErrAlreadyApproved, got %v", err)
	}
	mustInTx(t, repo, func(tx Tx) error {
		c, err := tx.Checklist(ctx, id)
		if err != nil {
			return err
		}
		if *c.ApprovedBy != 3 || !c.ApprovedAt.Equal(t0.Add(time.Hour)) {
			t.Errorf("re-approval overwrote the approver: %+v", c)
		}
		return nil
	})

	err = repo.InTx(ctx, func(tx Tx) error { return tx.ApproveChecklist(ctx, 999, 3, t0) })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("approving a missing checklist: expected ErrNotFound, got %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	var barnID int64
	mustInTx(t, repo, func(tx Tx) error {
		var err error
		barnID, err = tx.InsertBarn(ctx, model.Barn{Name: "A", LastUpdated: t0})
		return err
	})

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(tx Tx) error {
		if err := tx.SetBarnRisk(ctx, barnID, "high", t0.Add(time.Hour)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	mustInTx(t, repo, func(tx Tx) error {
		b, err := tx.Barn(ctx, barnID)
		if err != nil {
			return err
		}
		if b.RiskLevel != "low" || !b.LastUpdated.Equal(t0) {
			t.Errorf("barn changed despite rollback: %+v", b)
		}
		return nil
	})
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	var barnID int64
	mustInTx(t, repo, func(tx Tx) error {
		var err error
		barnID, err = tx.InsertBarn(ctx, model.Barn{Name: "A"})
		return err
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = repo.InTx(ctx, func(tx Tx) error {
			_ = tx.SetBarnRisk(ctx, barnID, "high", t0)
			panic("mid-batch failure")
		})
	}()

	mustInTx(t, repo, func(tx Tx) error {
		b, err := tx.Barn(ctx, barnID)
		if err != nil {
			return err
		}
		if b.RiskLevel != "low" {
			t.Errorf("risk level = %s after panic, want low", b.RiskLevel)
		}
		return nil
	})
}

func TestSetBarnRiskMissingBarn(t *testing.T) {
	repo := openTestRepo(t)
	err := repo.InTx(context.Background(), func(tx Tx) error {
		return tx.SetBarnRisk(context.Background(), 42, "high", t0)
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBarnNotFound(t *testing.T) {
	repo := openTestRepo(t)
	err := repo.InTx(context.Background(), func(tx Tx) error {
		_, err := tx.Barn(context.Background(), 42)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAlerts(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	mustInTx(t, repo, func(tx Tx) error {
		barnID, err := tx.InsertBarn(ctx, model.Barn{Name: "A"})
		if err != nil {
			return err
		}
		_, err = tx.InsertAlert(ctx, model.Alert{
			Type: model.AlertTypeHighRisk, Message: "High risk detected in A", Severity: "high",
			BarnID: &barnID, CreatedAt: t0,
		})
		return err
	})
	alerts, err := repo.Alerts(ctx)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Type != model.AlertTypeHighRisk || alerts[0].BarnID == nil || alerts[0].Read {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
}

func TestTrainingRecorder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	rec := NewSQLTrainingRecorder(repo.DB())

	for i := 0; i < 3; i++ {
		run := model.TrainingRun{
			RunID: fmt.Sprintf("run-%d", i), Source: model.SourceSynthetic, Rows: 1000,
			LowCount: 500, MediumCount: 400, HighCount: 100, Trees: 100, DurationMS: 120,
			TrainedAt: t0.Add(time.Duration(i) * time.Minute),
		}
		if err := rec.RecordTrainingRun(ctx, run); err != nil {
			t.Fatalf("RecordTrainingRun: %v", err)
		}
	}

	runs, err := rec.TrainingRuns(ctx, 2)
	if err != nil {
		t.Fatalf("TrainingRuns: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	if diff := cmp.Diff([]string{"run-2", "run-1"}, ids); diff != "" {
		t.Fatalf("run order (-want +got):\n%s", diff)
	}
	if runs[0].Rows != 1000 || runs[0].HighCount != 100 {
		t.Fatalf("unexpected run %+v", runs[0])
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	repo := openTestRepo(t)
	_ = repo.Close()

	_, err := repo.ApprovedChecklists(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	err = repo.InTx(context.Background(), func(Tx) error { return nil })
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("InTx on closed store: expected ErrStoreUnavailable, got %v", err)
	}
}

func TestClassifyPostgresErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"connection failure", &pq.Error{Code: "08006"}, ErrStoreUnavailable},
		{"admin shutdown", &pq.Error{Code: "57P01"}, ErrStoreUnavailable},
		{"too many connections", &pq.Error{Code: "53300"}, ErrStoreUnavailable},
		{"unique violation", &pq.Error{Code: "23505"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(fmt.Errorf("query: %w", tc.err))
			if tc.want == nil {
				if errors.Is(got, ErrStoreUnavailable) || errors.Is(got, ErrNotFound) {
					t.Fatalf("classify tagged a data error: %v", got)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Fatalf("classify(%v)\nwant: %v\n got: %v", tc.err, tc.want, got)
			}
		})
	}
}

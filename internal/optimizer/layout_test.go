package optimizer

import (
	"errors"
	"testing"

	"github.com/danielgtaylor/qtfaststart/pkg/atomic"
)

// indexOf builds a validated-looking index straight from atom records.
func indexOf(atoms ...atomic.Atom) *atomic.Index {
	index := &atomic.Index{Atoms: atoms}
	for _, a := range atoms {
		switch a.Type {
		case atomic.TypeFtyp:
			if !index.HasFtyp {
				index.Ftyp = a
				index.HasFtyp = true
			}
		case atomic.TypeMoov:
			if index.Moov.Size == 0 {
				index.Moov = a
			}
		case atomic.TypeMdat:
			if index.Mdat.Size == 0 {
				index.Mdat = a
			}
		}
	}
	return index
}

func atom(typ string, offset, size int64) atomic.Atom {
	return atomic.Atom{Type: typ, Offset: offset, Size: size, HeaderSize: 8}
}

func TestPlanLayoutMoovAfterTargetFirst(t *testing.T) {
	// [ftyp 16][mdat 1000][moov 200] -> moov moves in front of mdat.
	index := indexOf(
		atom("ftyp", 0, 16),
		atom("mdat", 16, 1000),
		atom("moov", 1016, 200),
	)
	plan, err := PlanLayout(index, MoovFirst, true)
	if err != nil {
		t.Fatalf("PlanLayout failed: %v", err)
	}
	if plan.Delta != 200 {
		t.Errorf("expected delta 200, got %d", plan.Delta)
	}
}

func TestPlanLayoutMoovBeforeTargetFirst(t *testing.T) {
	// Already fast-start with no free atoms: nothing to do.
	index := indexOf(
		atom("ftyp", 0, 16),
		atom("moov", 16, 200),
		atom("mdat", 216, 1000),
	)
	_, err := PlanLayout(index, MoovFirst, true)
	if !errors.Is(err, ErrAlreadyOptimized) {
		t.Errorf("expected ErrAlreadyOptimized, got %v", err)
	}

	// With a reclaimable free atom in front of mdat there is work to do.
	index = indexOf(
		atom("ftyp", 0, 16),
		atom("moov", 16, 200),
		atom("free", 216, 64),
		atom("mdat", 280, 1000),
	)
	plan, err := PlanLayout(index, MoovFirst, true)
	if err != nil {
		t.Fatalf("PlanLayout failed: %v", err)
	}
	if plan.Delta != -64 {
		t.Errorf("expected delta -64, got %d", plan.Delta)
	}
}

func TestPlanLayoutMoovBeforeTargetLast(t *testing.T) {
	// moov moves from in front of mdat to behind it.
	index := indexOf(
		atom("ftyp", 0, 16),
		atom("moov", 16, 200),
		atom("mdat", 216, 1000),
	)
	plan, err := PlanLayout(index, MoovLast, true)
	if err != nil {
		t.Fatalf("PlanLayout failed: %v", err)
	}
	if plan.Delta != -200 {
		t.Errorf("expected delta -200, got %d", plan.Delta)
	}
}

func TestPlanLayoutMoovAfterTargetLast(t *testing.T) {
	// moov already behind mdat and nothing to reclaim: no-op.
	index := indexOf(
		atom("ftyp", 0, 16),
		atom("mdat", 16, 1000),
		atom("moov", 1016, 200),
	)
	_, err := PlanLayout(index, MoovLast, true)
	if !errors.Is(err, ErrAlreadyOptimized) {
		t.Errorf("expected ErrAlreadyOptimized, got %v", err)
	}
}

func TestPlanLayoutFreeAccounting(t *testing.T) {
	// free both sides of mdat; only the one in front counts.
	index := indexOf(
		atom("ftyp", 0, 16),
		atom("free", 16, 100),
		atom("mdat", 116, 1000),
		atom("free", 1116, 50),
		atom("moov", 1166, 200),
	)

	plan, err := PlanLayout(index, MoovFirst, true)
	if err != nil {
		t.Fatalf("PlanLayout failed: %v", err)
	}
	if plan.Delta != 200-100 {
		t.Errorf("expected delta 100, got %d", plan.Delta)
	}
	if plan.BytesRemoved != 100 {
		t.Errorf("expected 100 bytes removed, got %d", plan.BytesRemoved)
	}

	// With cleanup disabled the free atom stays.
	plan, err = PlanLayout(index, MoovFirst, false)
	if err != nil {
		t.Fatalf("PlanLayout failed: %v", err)
	}
	if plan.Delta != 200 {
		t.Errorf("expected delta 200 without cleanup, got %d", plan.Delta)
	}
}

func TestPlanLayoutZeroAtomAlwaysCounts(t *testing.T) {
	index := indexOf(
		atom("ftyp", 0, 16),
		atomic.Atom{Type: "\x00\x00\x00\x00", Offset: 16, Size: 0, HeaderSize: 8},
		atom("mdat", 24, 1000),
		atom("moov", 1024, 200),
	)

	// Zero atoms are dropped even with cleanup disabled.
	plan, err := PlanLayout(index, MoovFirst, false)
	if err != nil {
		t.Fatalf("PlanLayout failed: %v", err)
	}
	if plan.Delta != 200-8 {
		t.Errorf("expected delta 192, got %d", plan.Delta)
	}
}

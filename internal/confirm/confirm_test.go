package confirm

import (
	"strings"
	"testing"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/executor"
	"github.com/equiproom/jerseyvox/internal/inventory"
)

func TestConfirmPhrases(t *testing.T) {
	t.Parallel()

	gen := New()
	row := inventory.Row{PlayerName: "Jalen Green", Edition: command.EditionIcon, Size: "48", QtyInventory: 7}

	tests := []struct {
		name string
		res  executor.Result
		want []string
	}{
		{
			name: "add",
			res: executor.Result{
				Command: command.Command{Type: command.TypeAdd, PlayerName: "Jalen Green", Size: "48", Quantity: 2},
				Rows:    []inventory.Row{row},
			},
			want: []string{"Added 2 jerseys", "Jalen Green", "size 48", "7 on hand"},
		},
		{
			name: "add creating new entry",
			res: executor.Result{
				Command: command.Command{Type: command.TypeAdd, PlayerName: "Fred VanVleet", Quantity: 1},
				Rows:    []inventory.Row{{PlayerName: "Fred VanVleet", Edition: command.EditionCity, Size: "50", QtyInventory: 1}},
				Created: true,
			},
			want: []string{"Created", "City jerseys size 50", "Fred VanVleet", "1 jersey"},
		},
		{
			name: "remove",
			res: executor.Result{
				Command: command.Command{Type: command.TypeRemove, PlayerName: "Jalen Green", Edition: command.EditionIcon, Size: "48", Quantity: 1},
				Rows:    []inventory.Row{row},
			},
			want: []string{"Removed 1 jersey", "Jalen Green Icon size 48", "7 left"},
		},
		{
			name: "set quantity",
			res: executor.Result{
				Command: command.Command{Type: command.TypeSet, PlayerName: "Jalen Green", TargetQuantity: 7},
				Rows:    []inventory.Row{row},
			},
			want: []string{"Set Jalen Green to 7 jerseys"},
		},
		{
			name: "set size",
			res: executor.Result{
				Command: command.Command{Type: command.TypeSet, PlayerName: "Jalen Green", Size: "52", Notes: command.NotesSetSize},
				Rows:    []inventory.Row{row},
			},
			want: []string{"size to 52"},
		},
		{
			name: "turn in with recipient",
			res: executor.Result{
				Command: command.Command{Type: command.TypeTurnIn, PlayerName: "Jalen Green", Quantity: 2, Recipient: "the equipment manager"},
				Rows:    []inventory.Row{row},
			},
			want: []string{"Turned in 2 jerseys", "to the equipment manager"},
		},
		{
			name: "laundry return",
			res: executor.Result{
				Command: command.Command{Type: command.TypeLaundryReturn, PlayerName: "Jalen Green", Quantity: 2},
				Rows:    []inventory.Row{row},
			},
			want: []string{"laundry", "7 on hand"},
		},
		{
			name: "order",
			res: executor.Result{
				Command: command.Command{Type: command.TypeOrder, PlayerName: "Jalen Green", Quantity: 3},
				Rows:    []inventory.Row{row},
			},
			want: []string{"order of 3 jerseys"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := gen.Confirm(tc.res)
			if !ok {
				t.Fatal("Confirm returned ok=false")
			}
			for _, want := range tc.want {
				if !strings.Contains(got, want) {
					t.Errorf("phrase %q does not contain %q", got, want)
				}
			}
		})
	}
}

// Deletes confirm the count actually removed, not the count requested.
// Created rows speak their size through the entry description, not the
// subject, so a size on the command is not said twice. The size-mutating
// set speaks the size only as the new value.
func TestConfirmSizeIsSpokenOnce(t *testing.T) {
	t.Parallel()

	gen := New()
	created := executor.Result{
		Command: command.Command{Type: command.TypeAdd, PlayerName: "Fred VanVleet", Size: "50", Quantity: 1},
		Rows:    []inventory.Row{{PlayerName: "Fred VanVleet", Edition: command.EditionCity, Size: "50", QtyInventory: 1}},
		Created: true,
	}
	got, ok := gen.Confirm(created)
	if !ok {
		t.Fatal("Confirm returned ok=false")
	}
	if n := strings.Count(got, "size 50"); n != 1 {
		t.Errorf("phrase %q says the size %d times, want 1", got, n)
	}

	setSize := executor.Result{
		Command: command.Command{Type: command.TypeSet, PlayerName: "Jalen Green", Size: "52", Notes: command.NotesSetSize},
		Rows:    []inventory.Row{{PlayerName: "Jalen Green", Size: "52", QtyInventory: 5}},
	}
	got, ok = gen.Confirm(setSize)
	if !ok {
		t.Fatal("Confirm returned ok=false")
	}
	if strings.Contains(got, "size 52's") || strings.Count(got, "52") != 1 {
		t.Errorf("phrase %q should name the new size exactly once", got)
	}
}

func TestConfirmDeleteReportsActualCount(t *testing.T) {
	t.Parallel()

	gen := New()
	res := executor.Result{
		Command: command.Command{Type: command.TypeDelete, PlayerName: "Jalen Green", Quantity: 5},
		Rows: []inventory.Row{
			{PlayerName: "Jalen Green", QtyInventory: 0},
			{PlayerName: "Jalen Green", QtyInventory: 0},
		},
		RemovedCount: 3,
	}
	got, ok := gen.Confirm(res)
	if !ok {
		t.Fatal("Confirm returned ok=false")
	}
	if !strings.Contains(got, "3 jerseys") {
		t.Errorf("phrase %q should report 3 removed", got)
	}
	if strings.Contains(got, "5") {
		t.Errorf("phrase %q should not echo the requested count", got)
	}
	if !strings.Contains(got, "2 entries") {
		t.Errorf("phrase %q should mention both entries", got)
	}
}

func TestConfirmDeleteNothingFound(t *testing.T) {
	t.Parallel()

	gen := New()
	res := executor.Result{
		Command: command.Command{Type: command.TypeDelete, PlayerName: "Jalen Green"},
	}
	got, ok := gen.Confirm(res)
	if !ok {
		t.Fatal("Confirm returned ok=false")
	}
	if !strings.Contains(got, "Nothing to remove") {
		t.Errorf("phrase = %q", got)
	}
}

func TestConfirmSilentForUnknownAndQueries(t *testing.T) {
	t.Parallel()

	gen := New()
	for _, typ := range []command.Type{command.TypeUnknown, command.TypeShow, command.TypeFilter, command.TypeGenerate} {
		if got, ok := gen.Confirm(executor.Result{Command: command.Command{Type: typ}}); ok {
			t.Errorf("%s: got phrase %q, want silence", typ, got)
		}
	}
}

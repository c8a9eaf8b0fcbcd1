package resolver_test

import (
	"errors"
	"testing"
	"time"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/inventory"
	"github.com/equiproom/jerseyvox/internal/resolver"
)

// ─── fixtures ────────────────────────────────────────────────────────────────

func snapshot() []inventory.Row {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []inventory.Row{
		{
			ID:           "row-jalen-48",
			PlayerName:   "Jalen Green",
			Edition:      command.EditionIcon,
			Size:         "48",
			QtyInventory: 5,
			UpdatedAt:    base,
		},
		{
			ID:           "row-jalen-50",
			PlayerName:   "Jalen Green",
			Edition:      command.EditionIcon,
			Size:         "50",
			QtyInventory: 2,
			UpdatedAt:    base.Add(time.Hour),
		},
		{
			ID:           "row-sengun",
			PlayerName:   "Alperen Sengun",
			Edition:      command.EditionStatement,
			Size:         "52",
			QtyInventory: 3,
			UpdatedAt:    base,
		},
	}
}

// ─── basic matching ──────────────────────────────────────────────────────────

func TestResolve_ExactPlayerEditionSize(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	cmd := command.Command{
		Type:       command.TypeAdd,
		PlayerName: "Jalen Green",
		Edition:    command.EditionIcon,
		Size:       "50",
		Quantity:   1,
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Target().ID != "row-jalen-50" {
		t.Errorf("target: got %q, want row-jalen-50", res.Target().ID)
	}
}

func TestResolve_PlayerMatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	cmd := command.Command{
		Type:       command.TypeRemove,
		PlayerName: "jalen green",
		Size:       "48",
		Quantity:   1,
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Target().ID != "row-jalen-48" {
		t.Errorf("target: got %q, want row-jalen-48", res.Target().ID)
	}
}

func TestResolve_NoMatchIsError(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	cmd := command.Command{
		Type:       command.TypeRemove,
		PlayerName: "Kevin Durant",
		Quantity:   1,
	}
	_, err := r.Resolve(cmd, snapshot(), nil)
	if !errors.Is(err, resolver.ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
}

func TestResolve_AddWithNoMatchCreatesNew(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	cmd := command.Command{
		Type:       command.TypeAdd,
		PlayerName: "Amen Thompson",
		Edition:    command.EditionCity,
		Size:       "50",
		Quantity:   2,
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.CreateNew {
		t.Error("expected CreateNew for an add that matches nothing")
	}
	if len(res.Rows) != 0 {
		t.Errorf("rows: got %d, want 0", len(res.Rows))
	}
}

// ─── tie-breaks ──────────────────────────────────────────────────────────────

func TestResolve_AmbiguousAddPicksHighestQty(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	// Both Jalen Icon rows qualify when size memory supplies nothing and no
	// size is spoken; for size-spanning ambiguity, pin the probe on the
	// remembered size of the target row first.
	mem := resolver.NewSizeMemory()
	mem.Remember("Jalen Green", string(command.EditionIcon), "48")

	cmd := command.Command{
		Type:       command.TypeAdd,
		PlayerName: "Jalen Green",
		Edition:    command.EditionIcon,
		Quantity:   1,
	}
	res, err := r.Resolve(cmd, snapshot(), mem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Command.Size != "48" {
		t.Errorf("defaulted size: got %q, want 48 (from memory)", res.Command.Size)
	}
	if res.Target().ID != "row-jalen-48" {
		t.Errorf("target: got %q, want row-jalen-48", res.Target().ID)
	}
}

func TestResolve_SetPicksMostRecent(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	// No size filter for the size-mutating set, so both Jalen rows qualify;
	// set targets the one touched last.
	cmd := command.Command{
		Type:       command.TypeSet,
		Notes:      command.NotesSetSize,
		PlayerName: "Jalen Green",
		Edition:    command.EditionIcon,
		Size:       "52",
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Target().ID != "row-jalen-50" {
		t.Errorf("target: got %q, want most recently updated row-jalen-50", res.Target().ID)
	}
}

func TestResolve_DeleteTakesAllCandidates(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	cmd := command.Command{
		Type:       command.TypeDelete,
		PlayerName: "Jalen Green",
		Edition:    command.EditionIcon,
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(res.Rows))
	}
	// Snapshot order is preserved.
	if res.Rows[0].ID != "row-jalen-48" || res.Rows[1].ID != "row-jalen-50" {
		t.Errorf("rows out of snapshot order: %q, %q", res.Rows[0].ID, res.Rows[1].ID)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	cmd := command.Command{
		Type:     command.TypeRemove,
		Edition:  command.EditionIcon,
		Quantity: 1,
	}
	first, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for range 10 {
		res, err := r.Resolve(cmd, snapshot(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.Target().ID != first.Target().ID {
			t.Fatalf("resolution not deterministic: %q then %q", first.Target().ID, res.Target().ID)
		}
	}
}

// ─── size defaulting ─────────────────────────────────────────────────────────

func TestResolve_SizeFromMemory(t *testing.T) {
	t.Parallel()
	r := resolver.New()
	mem := resolver.NewSizeMemory()
	mem.Remember("Alperen Sengun", string(command.EditionStatement), "52")

	cmd := command.Command{
		Type:       command.TypeRemove,
		PlayerName: "Alperen Sengun",
		Edition:    command.EditionStatement,
		Quantity:   1,
	}
	res, err := r.Resolve(cmd, snapshot(), mem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Command.Size != "52" {
		t.Errorf("size: got %q, want 52 from memory", res.Command.Size)
	}
}

func TestResolve_SizeFromExistingRow(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	// No memory: the first matching row's size fills the blank.
	cmd := command.Command{
		Type:       command.TypeRemove,
		PlayerName: "Alperen Sengun",
		Quantity:   1,
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Command.Size != "52" {
		t.Errorf("size: got %q, want 52 from the existing row", res.Command.Size)
	}
}

func TestResolve_ConfiguredDefaultSize(t *testing.T) {
	t.Parallel()
	r := resolver.New(resolver.WithDefaultSize("46"))

	// Nothing in memory and no matching row: the configured default wins.
	cmd := command.Command{
		Type:       command.TypeAdd,
		PlayerName: "Amen Thompson",
		Quantity:   1,
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Command.Size != "46" {
		t.Errorf("size: got %q, want configured default 46", res.Command.Size)
	}
}

// Defaulted sizes are flagged so the session never writes them to memory.
func TestResolve_FlagsInferredSize(t *testing.T) {
	t.Parallel()
	r := resolver.New()

	sizeless := command.Command{
		Type:       command.TypeRemove,
		PlayerName: "Alperen Sengun",
		Quantity:   1,
	}
	res, err := r.Resolve(sizeless, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SizeInferred {
		t.Error("defaulted size should be marked inferred")
	}

	explicit := sizeless
	explicit.Size = "52"
	res, err = r.Resolve(explicit, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SizeInferred {
		t.Error("spoken size must not be marked inferred")
	}
}

func TestResolve_DeleteSkipsSizeDefaulting(t *testing.T) {
	t.Parallel()
	r := resolver.New(resolver.WithDefaultSize("46"))

	cmd := command.Command{
		Type:       command.TypeDelete,
		PlayerName: "Jalen Green",
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Command.Size != "" {
		t.Errorf("delete must span sizes, got size %q", res.Command.Size)
	}
	if len(res.Rows) != 2 {
		t.Errorf("rows: got %d, want both Jalen rows", len(res.Rows))
	}
}

// ─── roster correction ───────────────────────────────────────────────────────

func TestResolve_CorrectsMisheardName(t *testing.T) {
	t.Parallel()
	r := resolver.New(resolver.WithRoster([]string{"Jalen Green", "Alperen Sengun", "Fred VanVleet"}))

	cmd := command.Command{
		Type:       command.TypeRemove,
		PlayerName: "Jaylen Green",
		Size:       "48",
		Quantity:   1,
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Command.PlayerName != "Jalen Green" {
		t.Errorf("player: got %q, want corrected Jalen Green", res.Command.PlayerName)
	}
	if res.Target().ID != "row-jalen-48" {
		t.Errorf("target: got %q, want row-jalen-48", res.Target().ID)
	}
}

func TestResolve_ExactNameNeedsNoCorrection(t *testing.T) {
	t.Parallel()
	r := resolver.New(resolver.WithRoster([]string{"Jalen Green"}))

	cmd := command.Command{
		Type:       command.TypeRemove,
		PlayerName: "Alperen Sengun",
		Quantity:   1,
	}
	res, err := r.Resolve(cmd, snapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Command.PlayerName != "Alperen Sengun" {
		t.Errorf("player: got %q, correction must not fire on exact row matches", res.Command.PlayerName)
	}
}

// ─── size memory ─────────────────────────────────────────────────────────────

func TestSizeMemory_FallbackOrder(t *testing.T) {
	t.Parallel()
	mem := resolver.NewSizeMemory()
	mem.Remember("Jalen Green", "Icon", "48")

	// Exact pair.
	if size, ok := mem.Lookup("Jalen Green", "Icon"); !ok || size != "48" {
		t.Errorf("exact lookup: got %q ok=%v", size, ok)
	}
	// Player wildcard: same player, different edition.
	if size, ok := mem.Lookup("Jalen Green", "City"); !ok || size != "48" {
		t.Errorf("player wildcard lookup: got %q ok=%v", size, ok)
	}
	// Edition wildcard: different player, same edition.
	if size, ok := mem.Lookup("Amen Thompson", "Icon"); !ok || size != "48" {
		t.Errorf("edition wildcard lookup: got %q ok=%v", size, ok)
	}
	// Neither matches.
	if _, ok := mem.Lookup("Amen Thompson", "City"); ok {
		t.Error("unrelated lookup should miss")
	}
}

func TestSizeMemory_LookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	mem := resolver.NewSizeMemory()
	mem.Remember("Jalen Green", "Icon", "48")

	if size, ok := mem.Lookup("jalen green", "icon"); !ok || size != "48" {
		t.Errorf("case-insensitive lookup: got %q ok=%v", size, ok)
	}
}

func TestSizeMemory_Clear(t *testing.T) {
	t.Parallel()
	mem := resolver.NewSizeMemory()
	mem.Remember("Jalen Green", "Icon", "48")
	mem.Clear()

	if _, ok := mem.Lookup("Jalen Green", "Icon"); ok {
		t.Error("lookup after Clear should miss")
	}
}

func TestSizeMemory_EmptySizeIsNoOp(t *testing.T) {
	t.Parallel()
	mem := resolver.NewSizeMemory()
	mem.Remember("Jalen Green", "Icon", "")

	if _, ok := mem.Lookup("Jalen Green", "Icon"); ok {
		t.Error("empty size must not be remembered")
	}
}

package domain

import (
	"testing"
)

func makeBlocks(ids ...string) []Block {
	blocks := make([]Block, len(ids))
	for i, id := range ids {
		blocks[i] = Block{ID: id, Type: BlockTypeWhatsApp, Order: i}
	}
	return blocks
}

func blockIDs(blocks []Block) []string {
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}

func TestMoveBlockPermutation(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		direction MoveDirection
		want      []string
	}{
		{name: "move middle up", index: 1, direction: MoveUp, want: []string{"b", "a", "c", "d"}},
		{name: "move middle down", index: 1, direction: MoveDown, want: []string{"a", "c", "b", "d"}},
		{name: "move last up", index: 3, direction: MoveUp, want: []string{"a", "b", "d", "c"}},
		{name: "move first down", index: 0, direction: MoveDown, want: []string{"b", "a", "c", "d"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			blocks := makeBlocks("a", "b", "c", "d")
			out, moved := MoveBlock(blocks, tc.index, tc.direction)
			if !moved {
				t.Fatalf("expected move to apply")
			}
			got := blockIDs(out)
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("sequence = %v, want %v", got, tc.want)
				}
			}
			movedID := blocks[tc.index].ID
			wantIndex := tc.index + int(tc.direction)
			if out[wantIndex].ID != movedID {
				t.Fatalf("moved block at index %d, want %d", indexOf(out, movedID), wantIndex)
			}
			for i, b := range out {
				if b.Order != i {
					t.Fatalf("block %s has order %d at index %d", b.ID, b.Order, i)
				}
			}
		})
	}
}

func TestMoveBlockBoundariesAreNoops(t *testing.T) {
	blocks := makeBlocks("a", "b", "c")

	if out, moved := MoveBlock(blocks, 0, MoveUp); moved {
		t.Fatalf("moving first block up must be a no-op, got %v", blockIDs(out))
	}
	if out, moved := MoveBlock(blocks, 2, MoveDown); moved {
		t.Fatalf("moving last block down must be a no-op, got %v", blockIDs(out))
	}
	if _, moved := MoveBlock(blocks, -1, MoveDown); moved {
		t.Fatalf("out-of-range index must be a no-op")
	}
	if _, moved := MoveBlock(blocks, 3, MoveUp); moved {
		t.Fatalf("out-of-range index must be a no-op")
	}
}

func TestMoveBlockDoesNotMutateInput(t *testing.T) {
	blocks := makeBlocks("a", "b", "c")
	_, moved := MoveBlock(blocks, 2, MoveUp)
	if !moved {
		t.Fatalf("expected move to apply")
	}
	for i, id := range []string{"a", "b", "c"} {
		if blocks[i].ID != id || blocks[i].Order != i {
			t.Fatalf("input mutated: %v", blocks)
		}
	}
}

func indexOf(blocks []Block, id string) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

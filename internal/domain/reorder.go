package domain

// MoveDirection is a one-step block move on the dashboard.
type MoveDirection int

const (
	MoveUp   MoveDirection = -1
	MoveDown MoveDirection = 1
)

// MoveBlock splices the block at index one position in the given direction
// and returns the permuted sequence with every block's Order rewritten to its
// new position. Moves past either boundary return the input unchanged with
// moved=false. The input slice is not mutated.
func MoveBlock(blocks []Block, index int, direction MoveDirection) (out []Block, moved bool) {
	if index < 0 || index >= len(blocks) {
		return blocks, false
	}
	target := index + int(direction)
	if target < 0 || target >= len(blocks) {
		return blocks, false
	}

	removed := make([]Block, 0, len(blocks))
	removed = append(removed, blocks[:index]...)
	removed = append(removed, blocks[index+1:]...)

	out = make([]Block, 0, len(blocks))
	out = append(out, removed[:target]...)
	out = append(out, blocks[index])
	out = append(out, removed[target:]...)

	// Every block is renumbered, not just the two swapped: partial numbering
	// left by earlier failed writes must not survive a successful move.
	for i := range out {
		out[i].Order = i
	}
	return out, true
}

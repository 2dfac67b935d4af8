package proof

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeRelicServer/crypto"
)

func leaves(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("leaf-%d", i))
	}
	return out
}

func TestMerkleEmptyAndSingle(t *testing.T) {
	assert.Equal(t, crypto.HashBytes([]byte("RUNE_RELIC_MERKLE_EMPTY_V1")), NewMerkleTree().Root())

	single := MerkleTreeFromLeaves([][]byte{[]byte("hello")})
	assert.Equal(t, crypto.HashWithDomain(crypto.DomainMerkleLeaf, []byte("hello")), single.Root())

	p, ok := single.Proof(0)
	require.True(t, ok)
	assert.Empty(t, p.Siblings)
	assert.True(t, VerifyProof(single.Root(), p, []byte("hello")))
}

func TestMerkleProofs(t *testing.T) {
	for n := 1; n <= 9; n++ {
		data := leaves(n)
		tree := MerkleTreeFromLeaves(data)
		root := tree.Root()
		assert.Equal(t, root, MerkleRoot(data), "n=%d", n)

		for i := range data {
			p, ok := tree.Proof(i)
			require.True(t, ok)
			assert.True(t, VerifyProof(root, p, data[i]), "n=%d i=%d", n, i)
			assert.False(t, VerifyProof(root, p, []byte("tampered")), "n=%d i=%d", n, i)
		}
		_, ok := tree.Proof(n)
		assert.False(t, ok)
	}
}

func TestMerkleProofSize(t *testing.T) {
	tree := MerkleTreeFromLeaves(leaves(5))
	p, ok := tree.Proof(4)
	require.True(t, ok)
	assert.Len(t, p.Siblings, 3)
	assert.Equal(t, 4+3*33, p.Size())
	// the fifth leaf's first sibling is padding
	assert.Equal(t, EmptyHash(), p.Siblings[0].Sibling)
	assert.True(t, p.Siblings[0].Right)
}

func TestMerkleRootChanges(t *testing.T) {
	data := leaves(4)
	root := MerkleRoot(data)

	changed := leaves(4)
	changed[2] = []byte("other")
	assert.NotEqual(t, root, MerkleRoot(changed))

	swapped := leaves(4)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	assert.NotEqual(t, root, MerkleRoot(swapped))

	tree := NewMerkleTree()
	for _, d := range data {
		tree.AddLeafHash(hashLeaf(d))
	}
	assert.Equal(t, root, tree.Root())
	assert.Equal(t, 4, tree.LeafCount())
}

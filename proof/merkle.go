package proof

import (
	"runeRelicServer/crypto"
)

var emptyLeaf = crypto.HashBytes([]byte(crypto.DomainMerkleEmpty))

// EmptyHash is the padding leaf and the root of an empty tree.
func EmptyHash() crypto.Hash {
	return emptyLeaf
}

func hashLeaf(data []byte) crypto.Hash {
	return crypto.HashWithDomain(crypto.DomainMerkleLeaf, data)
}

func hashNodes(left, right crypto.Hash) crypto.Hash {
	h := crypto.NewStateHasher(crypto.DomainMerkleNode)
	h.UpdateBytes(left[:])
	h.UpdateBytes(right[:])
	return h.Finalize()
}

// MerkleTree is a binary SHA-256 tree padded to a power of two.
type MerkleTree struct {
	leaves []crypto.Hash
	levels [][]crypto.Hash
}

func NewMerkleTree() *MerkleTree {
	return &MerkleTree{}
}

// MerkleTreeFromLeaves hashes each item as a leaf and builds the tree.
func MerkleTreeFromLeaves(items [][]byte) *MerkleTree {
	t := NewMerkleTree()
	for _, item := range items {
		t.AddLeaf(item)
	}
	t.build()
	return t
}

func (t *MerkleTree) AddLeaf(data []byte) {
	t.leaves = append(t.leaves, hashLeaf(data))
	t.levels = nil
}

func (t *MerkleTree) AddLeafHash(h crypto.Hash) {
	t.leaves = append(t.leaves, h)
	t.levels = nil
}

func (t *MerkleTree) LeafCount() int {
	return len(t.leaves)
}

func (t *MerkleTree) build() {
	t.levels = nil
	if len(t.leaves) == 0 {
		return
	}

	size := 1
	for size < len(t.leaves) {
		size <<= 1
	}
	level := make([]crypto.Hash, size)
	copy(level, t.leaves)
	for i := len(t.leaves); i < size; i++ {
		level[i] = emptyLeaf
	}
	t.levels = append(t.levels, level)

	for len(level) > 1 {
		next := make([]crypto.Hash, len(level)/2)
		for i := range next {
			next[i] = hashNodes(level[2*i], level[2*i+1])
		}
		t.levels = append(t.levels, next)
		level = next
	}
}

// Root builds lazily. A single leaf is its own root.
func (t *MerkleTree) Root() crypto.Hash {
	if len(t.leaves) == 0 {
		return emptyLeaf
	}
	if t.levels == nil {
		t.build()
	}
	return t.levels[len(t.levels)-1][0]
}

// ProofStep is one sibling on the path to the root. Right means the
// current node is the left child, so the sibling hashes on the right.
type ProofStep struct {
	Sibling crypto.Hash `json:"sibling"`
	Right   bool        `json:"right"`
}

type MerkleProof struct {
	LeafIndex uint32      `json:"leafIndex"`
	Siblings  []ProofStep `json:"siblings"`
}

// Size is the wire size: index plus hash and flag per level.
func (p MerkleProof) Size() int {
	return 4 + len(p.Siblings)*33
}

// Proof returns false for an index past the last real leaf.
func (t *MerkleTree) Proof(index int) (MerkleProof, bool) {
	if index < 0 || index >= len(t.leaves) {
		return MerkleProof{}, false
	}
	if t.levels == nil {
		t.build()
	}

	p := MerkleProof{LeafIndex: uint32(index)}
	i := index
	for _, level := range t.levels[:len(t.levels)-1] {
		right := i%2 == 0
		sib := i - 1
		if right {
			sib = i + 1
		}
		p.Siblings = append(p.Siblings, ProofStep{Sibling: level[sib], Right: right})
		i /= 2
	}
	return p, true
}

// VerifyProof checks raw leaf data against root.
func VerifyProof(root crypto.Hash, p MerkleProof, data []byte) bool {
	return VerifyProofHash(root, p, hashLeaf(data))
}

func VerifyProofHash(root crypto.Hash, p MerkleProof, leaf crypto.Hash) bool {
	cur := leaf
	for _, s := range p.Siblings {
		if s.Right {
			cur = hashNodes(cur, s.Sibling)
		} else {
			cur = hashNodes(s.Sibling, cur)
		}
	}
	return cur == root
}

// MerkleRoot is shorthand for building a tree only for its root.
func MerkleRoot(items [][]byte) crypto.Hash {
	return MerkleTreeFromLeaves(items).Root()
}

package contract

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"runeRelicServer/crypto"

	"github.com/ethereum/go-ethereum"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrBlockNotReady means the requested block has not been produced yet
var ErrBlockNotReady = errors.New("block not yet available")

// EntropySource supplies block hashes that nobody could know when the
// match commitment was published.
type EntropySource interface {
	LatestHeight(ctx context.Context) (uint64, error)
	BlockHash(ctx context.Context, height uint64) (crypto.Hash, error)
}

/* =========================
   CHAIN ENTROPY (RPC)
========================= */

type ChainEntropy struct {
	Client *ethclient.Client
	rpcURL string
}

// NewChainEntropy dials the RPC endpoint
func NewChainEntropy(rpcURL string) (*ChainEntropy, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	log.Printf("✅ Entropy source connected - RPC: %s", rpcURL)
	return &ChainEntropy{Client: client, rpcURL: rpcURL}, nil
}

func (c *ChainEntropy) LatestHeight(ctx context.Context) (uint64, error) {
	n, err := c.Client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return n, nil
}

func (c *ChainEntropy) BlockHash(ctx context.Context, height uint64) (crypto.Hash, error) {
	header, err := c.Client.HeaderByNumber(ctx, new(big.Int).SetUint64(height))
	if errors.Is(err, ethereum.NotFound) {
		return crypto.Hash{}, ErrBlockNotReady
	}
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("failed to get header %d: %w", height, err)
	}
	return crypto.Hash(header.Hash()), nil
}

func (c *ChainEntropy) Close() {
	c.Client.Close()
}

/* =========================
   LOCAL ENTROPY (no RPC configured)
========================= */

// LocalEntropy mints pseudo-blocks on demand from a secret drawn at startup.
// It keeps the commit-then-reveal ordering but is only as trustworthy as
// the server.
type LocalEntropy struct {
	mu     sync.Mutex
	secret [32]byte
	height uint64
}

func NewLocalEntropy() (*LocalEntropy, error) {
	secret, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}
	return &LocalEntropy{secret: secret}, nil
}

// NewLocalEntropyWithSecret is deterministic; used by tools and tests.
func NewLocalEntropyWithSecret(secret [32]byte) *LocalEntropy {
	return &LocalEntropy{secret: secret}
}

func (l *LocalEntropy) LatestHeight(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height, nil
}

// BlockHash mints every block up to height.
func (l *LocalEntropy) BlockHash(_ context.Context, height uint64) (crypto.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if height > l.height {
		l.height = height
	}
	var h [8]byte
	binary.LittleEndian.PutUint64(h[:], height)
	return crypto.Hash(ethcrypto.Keccak256Hash([]byte("RUNE_RELIC_LOCAL_BLOCK_V1"), l.secret[:], h[:])), nil
}

/* =========================
   WAITING
========================= */

// WaitForBlock polls until height exists or ctx expires.
func WaitForBlock(ctx context.Context, src EntropySource, height uint64, poll time.Duration) (crypto.Hash, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		hash, err := src.BlockHash(ctx, height)
		if err == nil {
			return hash, nil
		}
		if !errors.Is(err, ErrBlockNotReady) {
			return crypto.Hash{}, err
		}

		select {
		case <-ctx.Done():
			return crypto.Hash{}, fmt.Errorf("failed waiting for block %d: %w", height, ctx.Err())
		case <-ticker.C:
		}
	}
}

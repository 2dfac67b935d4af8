package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"strings"

	"runeRelicServer/config"
	"runeRelicServer/proof"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// anchorMagic prefixes every anchoring payload
var anchorMagic = []byte("RRA1")

// AnchorPayloadSize is magic + match id + transcript digest + public inputs hash
const AnchorPayloadSize = 4 + 16 + 32 + 32

// AnchorConfig holds configuration for the result anchor
type AnchorConfig struct {
	PrivateKey string
	RPCUrl     string
	ChainID    int64
	Address    string
}

// Anchor posts match results on chain as calldata of a zero-value
// transaction. Anyone can later compare it with a reveal.
type Anchor struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	from       common.Address
	to         common.Address
	chainID    *big.Int
}

// NewAnchor connects to RPC and loads the signing key
func NewAnchor(cfg AnchorConfig) (*Anchor, error) {
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("ANCHOR_PRIVATE_KEY not set")
	}
	to := common.HexToAddress(cfg.Address)
	if to == (common.Address{}) {
		return nil, fmt.Errorf("ANCHOR_ADDRESS not set")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	client, err := ethclient.Dial(cfg.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	from := crypto.PubkeyToAddress(privateKey.PublicKey)
	log.Printf("✅ Anchor initialized - From: %s, To: %s", from.Hex(), to.Hex())

	return &Anchor{
		client:     client,
		privateKey: privateKey,
		from:       from,
		to:         to,
		chainID:    config.ChainIDBig(cfg.ChainID),
	}, nil
}

// AnchorPayload is the calldata committing to a finished transcript
func AnchorPayload(t *proof.Transcript) []byte {
	pi := proof.PublicInputsFromTranscript(t)
	piHash := crypto.Keccak256(pi.Bytes())
	digest := t.Digest()

	out := make([]byte, 0, AnchorPayloadSize)
	out = append(out, anchorMagic...)
	out = append(out, t.Metadata.MatchID[:]...)
	out = append(out, digest[:]...)
	out = append(out, piHash...)
	return out
}

// BuildAnchorTx signs a legacy transaction carrying the payload.
func BuildAnchorTx(key *ecdsa.PrivateKey, chainID *big.Int, to common.Address, nonce uint64, gasPrice *big.Int, gasLimit uint64, payload []byte) (*types.Transaction, error) {
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     payload,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign anchor tx: %w", err)
	}
	return signed, nil
}

// AnchorTranscript sends the anchor transaction without waiting for it to
// be mined and returns its hash.
func (a *Anchor) AnchorTranscript(ctx context.Context, t *proof.Transcript) (common.Hash, error) {
	payload := AnchorPayload(t)

	nonce, err := a.client.PendingNonceAt(ctx, a.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit, err := a.client.EstimateGas(ctx, ethereum.CallMsg{
		From: a.from,
		To:   &a.to,
		Data: payload,
	})
	if err != nil {
		log.Printf("⚠️ Gas estimation failed, using default: %v", err)
		gasLimit = config.AnchorFallbackGas
	} else {
		gasLimit += gasLimit * 20 / 100 // +20% buffer
	}

	tx, err := BuildAnchorTx(a.privateKey, a.chainID, a.to, nonce, gasPrice, gasLimit, payload)
	if err != nil {
		return common.Hash{}, err
	}

	if err := a.client.SendTransaction(ctx, tx); err != nil {
		log.Printf("❌ Anchor tx failed: %v", err)
		return common.Hash{}, fmt.Errorf("failed to send anchor tx: %w", err)
	}

	log.Printf("📤 Anchored match %s in tx %s (not waiting for confirmation)",
		t.Metadata.MatchID, tx.Hash().Hex())
	return tx.Hash(), nil
}

// Close closes the client connection
func (a *Anchor) Close() {
	a.client.Close()
}
